package account

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/zentra/linkpreview/internal/middleware"
	"github.com/zentra/linkpreview/internal/models"
)

var (
	ErrUnauthenticated = errors.New("no authenticated account")
	ErrAccountNotFound = errors.New("account not found")
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Service struct {
	db Querier
}

func NewService(db Querier) *Service {
	return &Service{db: db}
}

// CurrentAccount loads the account authenticated on ctx.
func (s *Service) CurrentAccount(ctx context.Context) (*models.AccountIdentity, error) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	account := &models.AccountIdentity{}
	err := s.db.QueryRow(ctx,
		`SELECT id, username FROM users WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&account.ID, &account.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}
