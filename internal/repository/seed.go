package repository

import (
	"context"
	"errors"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
)

// Seed creates the given accounts when they do not exist yet.
func Seed(ctx context.Context, repo AccountRepository, accounts []domain.Account) error {
	for i := range accounts {
		a := accounts[i]
		if _, err := repo.GetByUsername(ctx, a.Username); err == nil {
			continue
		} else if !errors.Is(err, ErrAccountNotFound) {
			return err
		}
		if err := repo.Create(ctx, &a); err != nil && !errors.Is(err, ErrAccountExists) {
			return err
		}
		l := log.Ctx(ctx)
		l.Info().Str(log.FieldUsername, a.Username).Int64("balance", a.Balance).Msg("seeded account")
	}
	return nil
}
