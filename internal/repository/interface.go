package repository

import (
	"context"
	"fmt"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
)

var (
	ErrAccountNotFound   = fmt.Errorf("account not found: %w", domain.ErrNotFound)
	ErrAccountExists     = fmt.Errorf("account already exists: %w", domain.ErrConflict)
	ErrInsufficientFunds = fmt.Errorf("balance too low: %w", domain.ErrInsufficientFunds)
)

// AccountRepository is the identity and balance store.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	// GetChannelOwner returns the account owning the channel streamID.
	GetChannelOwner(ctx context.Context, streamID string) (*domain.Account, error)
	// Transfer debits from and applies every credit in one transaction.
	// Nothing changes unless every step succeeds.
	Transfer(ctx context.Context, from string, amount int64, credits []domain.Credit) (map[string]int64, error)
}
