package account

import (
	"context"

	domain "signups/internal/domain/account"
)

// Store persists Account state and the email tokens issued for it.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	Count(ctx context.Context) (int, error)
	SaveToken(ctx context.Context, token domain.Token) error
	GetToken(ctx context.Context, token string) (domain.Token, error)
	InvalidateTokens(ctx context.Context, accountID, purpose string) error
}
