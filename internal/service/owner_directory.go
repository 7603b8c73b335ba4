package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/audit"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/cache"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/repository"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
)

type ownerDirectory struct {
	repo     repository.AccountRepository
	cache    cache.OwnerCache
	cacheTTL time.Duration
	sf       singleflight.Group
}

// NewOwnerDirectory creates a cache-aside owner lookup. ownerCache may be nil.
func NewOwnerDirectory(repo repository.AccountRepository, ownerCache cache.OwnerCache, cacheTTL time.Duration) OwnerDirectory {
	return &ownerDirectory{
		repo:     repo,
		cache:    ownerCache,
		cacheTTL: cacheTTL,
	}
}

func (d *ownerDirectory) ChannelOwner(ctx context.Context, streamID string) (*domain.Account, error) {
	result, err, _ := d.sf.Do(streamID, func() (interface{}, error) {
		if d.cache != nil {
			cached, err := d.cache.Get(ctx, streamID)
			if err == nil {
				return cached, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Msg("cache get error")
			}
		}

		owner, err := d.repo.GetChannelOwner(ctx, streamID)
		if err != nil {
			return nil, err
		}
		d.asyncCacheSet(streamID, owner)
		return owner, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Account), nil
}

func (d *ownerDirectory) IsChannelOwner(ctx context.Context, streamID, identity string) bool {
	if identity == "" {
		return false
	}
	owner, err := d.ChannelOwner(ctx, streamID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldStreamID, streamID).Msg("owner lookup failed")
		}
		return false
	}
	if owner.Username != identity {
		return false
	}
	audit.Log(ctx, audit.ActionHostVerified, identity, streamID, "host claim verified")
	return true
}

func (d *ownerDirectory) asyncCacheSet(streamID string, owner *domain.Account) {
	if d.cache == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := d.cache.Set(ctx, streamID, owner, d.cacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldStreamID, streamID).Msg("cache set error")
		}
	}()
}
