package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/database"
)

func newTestRepo(t *testing.T, accounts ...domain.Account) *GormAccountRepository {
	t.Helper()
	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.AccountModel{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	repo := NewGormAccountRepository(db)
	require.NoError(t, Seed(context.Background(), repo, accounts))
	return repo
}

func balance(t *testing.T, repo *GormAccountRepository, name string) int64 {
	t.Helper()
	a, err := repo.GetByUsername(context.Background(), name)
	require.NoError(t, err)
	return a.Balance
}

func TestCreateAndLookup(t *testing.T) {
	repo := newTestRepo(t, domain.Account{Username: "alice", Balance: 10})
	ctx := context.Background()

	a, err := repo.GetChannelOwner(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", a.Username)

	err = repo.Create(ctx, &domain.Account{Username: "alice"})
	require.ErrorIs(t, err, ErrAccountExists)
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetChannelOwner(ctx, "nobody")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := newTestRepo(t, domain.Account{Username: "alice", Balance: 10})
	require.NoError(t, Seed(context.Background(), repo, []domain.Account{{Username: "alice", Balance: 999}}))
	require.Equal(t, int64(10), balance(t, repo, "alice"))
}

func TestTransfer(t *testing.T) {
	repo := newTestRepo(t,
		domain.Account{Username: "alice"},
		domain.Account{Username: "bob", Balance: 5},
		domain.Account{Username: "tipper", Balance: 100},
	)

	got, err := repo.Transfer(context.Background(), "tipper", 100, []domain.Credit{
		{Name: "alice", Amount: 70},
		{Name: "bob", Amount: 30},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"alice": 70, "bob": 35, "tipper": 0}, got)
	require.Equal(t, int64(0), balance(t, repo, "tipper"))
	require.Equal(t, int64(35), balance(t, repo, "bob"))
}

func TestTransferRollsBack(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		amount  int64
		credits []domain.Credit
		err     error
	}{
		{"insufficient", "tipper", 101, []domain.Credit{{Name: "alice", Amount: 101}}, domain.ErrInsufficientFunds},
		{"unknown tipper", "ghost", 10, []domain.Credit{{Name: "alice", Amount: 10}}, domain.ErrNotFound},
		{"unknown member", "tipper", 10, []domain.Credit{{Name: "alice", Amount: 5}, {Name: "ghost", Amount: 5}}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(t,
				domain.Account{Username: "alice"},
				domain.Account{Username: "tipper", Balance: 100},
			)
			_, err := repo.Transfer(context.Background(), tt.from, tt.amount, tt.credits)
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, int64(100), balance(t, repo, "tipper"))
			require.Equal(t, int64(0), balance(t, repo, "alice"))
		})
	}
}

func TestTransferSelfTip(t *testing.T) {
	repo := newTestRepo(t, domain.Account{Username: "alice", Balance: 50})
	got, err := repo.Transfer(context.Background(), "alice", 50, []domain.Credit{{Name: "alice", Amount: 50}})
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"alice": 50}, got)
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	repo := newTestRepo(t,
		domain.Account{Username: "alice"},
		domain.Account{Username: "tipper", Balance: 100},
	)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Transfer(context.Background(), "tipper", 30, []domain.Credit{{Name: "alice", Amount: 30}}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, ok)
	require.Equal(t, int64(10), balance(t, repo, "tipper"))
	require.Equal(t, int64(90), balance(t, repo, "alice"))
}
