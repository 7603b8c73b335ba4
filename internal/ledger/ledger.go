package ledger

import (
	"context"
	"fmt"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
)

// Store moves balances atomically. Transfer debits from by amount and
// applies every credit in one transaction, returning the post-commit
// balances of every account involved.
type Store interface {
	Transfer(ctx context.Context, from string, amount int64, credits []domain.Credit) (map[string]int64, error)
}

// OwnerDirectory resolves the account that owns a channel.
type OwnerDirectory interface {
	ChannelOwner(ctx context.Context, streamID string) (*domain.Account, error)
}

// SquadSource returns the validated split table of a live session.
type SquadSource interface {
	Squad(ctx context.Context, streamID string) (domain.Squad, error)
}

// Receipt is the committed result of one tip.
type Receipt struct {
	StreamID string
	Tipper   string
	Host     string
	Amount   int64
	Credits  []domain.Credit
	Balances map[string]int64
}

// Ledger is the store-side half: it runs the tip transaction outside the
// coordinator loop.
type Ledger struct {
	store  Store
	owners OwnerDirectory
	squads SquadSource
}

// New creates a ledger.
func New(store Store, owners OwnerDirectory, squads SquadSource) *Ledger {
	return &Ledger{store: store, owners: owners, squads: squads}
}

// Distribute splits a tip from tipper across the squad of streamID.
func (l *Ledger) Distribute(ctx context.Context, streamID string, amount int64, tipper string) (*Receipt, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("tip amount %d: %w", amount, domain.ErrValidation)
	}
	if tipper == "" {
		return nil, fmt.Errorf("anonymous tip: %w", domain.ErrUnauthorized)
	}

	host, err := l.owners.ChannelOwner(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("resolve host of %s: %w", streamID, err)
	}

	squad, err := l.squads.Squad(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("squad of %s: %w", streamID, err)
	}

	credits := Shares(squad, host.Username, amount)
	balances, err := l.store.Transfer(ctx, tipper, amount, credits)
	if err != nil {
		return nil, err
	}

	return &Receipt{
		StreamID: streamID,
		Tipper:   tipper,
		Host:     host.Username,
		Amount:   amount,
		Credits:  credits,
		Balances: balances,
	}, nil
}
