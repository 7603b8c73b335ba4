package service

import (
	"context"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/ledger"
)

// OwnerDirectory resolves channel owners and verifies host claims.
type OwnerDirectory interface {
	ChannelOwner(ctx context.Context, streamID string) (*domain.Account, error)
	// IsChannelOwner reports whether identity owns streamID. Lookup
	// failures count as "no".
	IsChannelOwner(ctx context.Context, streamID, identity string) bool
}

// TipService runs tips end to end.
type TipService interface {
	Tip(ctx context.Context, tipper, streamID string, amount int64) (*ledger.Receipt, error)
}

// TipNotifier delivers post-commit notices to live connections.
type TipNotifier interface {
	NotifyTip(ctx context.Context, r *ledger.Receipt) error
}
