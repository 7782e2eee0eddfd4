package account

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zentra/linkpreview/internal/middleware"
)

type fakeRow struct {
	id       uuid.UUID
	username string
	err      error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*uuid.UUID) = r.id
	*dest[1].(*string) = r.username
	return nil
}

type fakeQuerier struct {
	row     fakeRow
	gotArgs []any
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	q.gotArgs = args
	return q.row
}

func TestCurrentAccount(t *testing.T) {
	userID := uuid.New()
	db := &fakeQuerier{row: fakeRow{id: userID, username: "alice"}}

	ctx := middleware.WithUser(context.Background(), userID, "alice")
	account, err := NewService(db).CurrentAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, userID, account.ID)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, []any{userID}, db.gotArgs)
}

func TestCurrentAccountErrors(t *testing.T) {
	_, err := NewService(&fakeQuerier{}).CurrentAccount(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	ctx := middleware.WithUser(context.Background(), uuid.New(), "ghost")

	_, err = NewService(&fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}).CurrentAccount(ctx)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	boom := errors.New("connection lost")
	_, err = NewService(&fakeQuerier{row: fakeRow{err: boom}}).CurrentAccount(ctx)
	assert.ErrorIs(t, err, boom)
}
