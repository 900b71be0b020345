package remote

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/cardsync/internal/common"
	"github.com/dmitrijs2005/cardsync/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRemote implements Remote over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRemote struct {
	db dbx.DBTX
}

func NewPostgresRemote(db dbx.DBTX) *PostgresRemote {
	return &PostgresRemote{db: db}
}

// OpenDB opens a pgx-backed pool. It does not dial, so an unreachable
// server only shows up on the first sync.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

func (r *PostgresRemote) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, classify("exists", err)
	}
	return exists, nil
}

func (r *PostgresRemote) Insert(ctx context.Context, c Card) error {
	enc, err := encode(c)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO cards (id, creator_id, title, description, image_url, thumbnail_url, rarity, tags,
			design_metadata, visibility, creator_attribution, publishing_options,
			verification_status, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.CreatorID, c.Title, c.Description, c.ImageURL, c.ThumbnailURL, string(c.Rarity), enc.tags,
		enc.designMetadata, string(c.Visibility), enc.creatorAttribution, enc.publishingOptions,
		c.VerificationStatus, c.IsPublic, utc(c.CreatedAt), utc(c.UpdatedAt))
	if err != nil {
		return classify("insert", err)
	}
	return nil
}

// Update overwrites the row only when the stored copy is not newer than c
// and belongs to the same creator. Anything else is ErrRemoteRejected.
// verification_status is server-owned and never written here.
func (r *PostgresRemote) Update(ctx context.Context, c Card) error {
	enc, err := encode(c)
	if err != nil {
		return err
	}
	query := `
		UPDATE cards SET
			title = $3, description = $4, image_url = $5, thumbnail_url = $6, rarity = $7, tags = $8,
			design_metadata = $9, visibility = $10, creator_attribution = $11, publishing_options = $12,
			is_public = $13, updated_at = $14
		WHERE id = $1 AND creator_id = $2 AND updated_at <= $14
	`
	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.CreatorID, c.Title, c.Description, c.ImageURL, c.ThumbnailURL, string(c.Rarity), enc.tags,
		enc.designMetadata, string(c.Visibility), enc.creatorAttribution, enc.publishingOptions,
		c.IsPublic, utc(c.UpdatedAt))
	if err != nil {
		return classify("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("update card %q: %w: remote copy is newer or not owned", c.ID, common.ErrRemoteRejected)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Delete removes the row owned by creatorID. A missing row is not an error.
func (r *PostgresRemote) Delete(ctx context.Context, id, creatorID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1 AND creator_id = $2`, id, creatorID)
	if err != nil {
		return classify("delete", err)
	}
	return nil
}
