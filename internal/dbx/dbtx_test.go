package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openCardsDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE cards (id TEXT PRIMARY KEY, title TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func cardCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM cards`).Scan(&n))
	return n
}

func insertCard(ctx context.Context, tx DBTX, id string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO cards (id, title) VALUES (?, ?)`, id, "card "+id)
	return err
}

func TestWithTx_CommitsBatch(t *testing.T) {
	db := openCardsDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		for _, id := range []string{"a", "b", "c"} {
			if err := insertCard(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, cardCount(t, db))
}

func TestWithTx_PartialBatchIsRolledBack(t *testing.T) {
	db := openCardsDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertCard(ctx, tx, "a"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, cardCount(t, db))
}

func TestWithTx_ConstraintViolationRollsBack(t *testing.T) {
	db := openCardsDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if err := insertCard(ctx, tx, "a"); err != nil {
			return err
		}
		return insertCard(ctx, tx, "a")
	})
	require.Error(t, err)
	require.Zero(t, cardCount(t, db))
}

func TestWithTx_PanicRollsBackAndPropagates(t *testing.T) {
	db := openCardsDB(t)

	require.Panics(t, func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insertCard(ctx, tx, "a"))
			panic("kaput")
		})
	})
	require.Zero(t, cardCount(t, db))
}

func TestWithTx_BeginFailsOnClosedDB(t *testing.T) {
	db := openCardsDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
}
