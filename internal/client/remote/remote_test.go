package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/cardsync/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"check violation", &pgconn.PgError{Code: "23514"}, common.ErrRemoteRejected},
		{"invalid text", &pgconn.PgError{Code: "22P02"}, common.ErrRemoteRejected},
		{"auth failure", &pgconn.PgError{Code: "28P01"}, common.ErrRemoteRejected},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, common.ErrRemoteRejected},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, common.ErrRemoteUnavailable},
		{"network", errors.New("connection refused"), common.ErrRemoteUnavailable},
		{"already rejected", fmt.Errorf("x: %w", common.ErrRemoteRejected), common.ErrRemoteRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify("op", tt.err), tt.want)
		})
	}
	assert.NoError(t, classify("op", nil))
}

func TestClassify_KeepsContextErrors(t *testing.T) {
	err := classify("update", context.DeadlineExceeded)
	assert.ErrorIs(t, err, common.ErrRemoteUnavailable)
	assert.True(t, IsTimeout(err))
	assert.False(t, IsTimeout(errors.New("boom")))
}
