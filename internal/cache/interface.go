package cache

import (
	"context"
	"time"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
)

// OwnerCache caches channel-owner lookups keyed by stream id.
type OwnerCache interface {
	Get(ctx context.Context, streamID string) (*domain.Account, error)
	Set(ctx context.Context, streamID string, owner *domain.Account, ttl time.Duration) error
	Delete(ctx context.Context, streamIDs ...string) error
	Close() error
}
