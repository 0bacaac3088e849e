package reservation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// FallbackRepository prefers the remote store and falls back to the local
// cache when the remote is unavailable. Successful remote snapshots are
// mirrored into the cache so it stays close to the last known state. While
// the remote is offline, subscribers follow the cache instead.
type FallbackRepository struct {
	remote  Repository
	cache   *LocalRepository
	logger  *slog.Logger
	offline atomic.Bool
}

func NewFallbackRepository(remote Repository, cache *LocalRepository, logger *slog.Logger) *FallbackRepository {
	r := &FallbackRepository{remote: remote, cache: cache, logger: logger}

	if notifier, ok := remote.(DisconnectNotifier); ok {
		notifier.OnDisconnect(r.disconnected)
	}

	return r
}

func (r *FallbackRepository) Load(ctx context.Context) ([]Reservation, error) {
	reservations, err := r.remote.Load(ctx)

	if errors.Is(err, ErrStoreUnavailable) {
		r.logger.Warn("remote store unavailable, reading local cache", "err", err)
		r.offline.Store(true)
		return r.cache.Load(ctx)
	}

	if err != nil {
		return nil, err
	}

	r.mirror(ctx, reservations)

	return reservations, nil
}

// Subscribe follows the remote store and, while it is offline, the local
// cache. onSnapshot is never called concurrently with itself.
func (r *FallbackRepository) Subscribe(ctx context.Context, onSnapshot func([]Reservation)) (func(), error) {
	var mu sync.Mutex

	deliver := func(reservations []Reservation) {
		mu.Lock()
		defer mu.Unlock()
		onSnapshot(reservations)
	}

	stopRemote, err := r.remote.Subscribe(ctx, func(reservations []Reservation) {
		r.offline.Store(false)
		r.mirror(ctx, reservations)
		deliver(reservations)
	})

	if err != nil {
		r.logger.Warn("remote subscription failed, following local cache", "err", err)
		r.offline.Store(true)
		return r.cache.Subscribe(ctx, deliver)
	}

	stopCache, err := r.cache.Subscribe(ctx, func(reservations []Reservation) {
		if r.offline.Load() {
			deliver(reservations)
		}
	})

	if err != nil {
		stopRemote()
		return nil, err
	}

	return func() {
		stopRemote()
		stopCache()
	}, nil
}

func (r *FallbackRepository) Add(ctx context.Context, reservation Reservation, guard Guard) (Reservation, error) {
	inserted, err := r.remote.Add(ctx, reservation, guard)

	if errors.Is(err, ErrStoreUnavailable) {
		r.logger.Warn("remote store unavailable, saving reservation locally", "err", err)
		r.offline.Store(true)
		return r.cache.Add(ctx, reservation, guard)
	}

	return inserted, err
}

func (r *FallbackRepository) Delete(ctx context.Context, id string) error {
	err := r.remote.Delete(ctx, id)

	switch {
	case err == nil:
		if err := r.cache.Delete(ctx, id); err != nil && !errors.Is(err, ErrReservationNotFound) {
			r.logger.Warn("failed to delete cached reservation", "id", id, "err", err)
		}
		return nil
	case errors.Is(err, ErrStoreUnavailable):
		r.offline.Store(true)
		return r.cache.Delete(ctx, id)
	case errors.Is(err, ErrReservationNotFound):
		// The reservation may only exist in the cache if it was made offline.
		return r.cache.Delete(ctx, id)
	default:
		return err
	}
}

func (r *FallbackRepository) Clear(ctx context.Context) error {
	err := r.remote.Clear(ctx)

	if err != nil && !errors.Is(err, ErrStoreUnavailable) {
		return err
	}

	if err != nil {
		r.offline.Store(true)
	}

	if cacheErr := r.cache.Clear(ctx); cacheErr != nil {
		return cacheErr
	}

	if err != nil {
		r.logger.Warn("remote store unavailable, cleared local cache only", "err", err)
	}

	return nil
}

func (r *FallbackRepository) Status(ctx context.Context) Status {
	if reporter, ok := r.remote.(StatusReporter); ok {
		return reporter.Status(ctx)
	}

	return Status{Mode: ModeOnline, RemoteEnabled: true, Connection: ConnectionStatus{Success: true}}
}

// disconnected switches subscribers over to the cache until the remote
// delivers a snapshot again.
func (r *FallbackRepository) disconnected(err error) {
	r.logger.Warn("remote subscription lost, following local cache", "err", err)
	r.offline.Store(true)

	if err := r.cache.republish(context.Background()); err != nil {
		r.logger.Warn("failed to publish local cache", "err", err)
	}
}

func (r *FallbackRepository) mirror(ctx context.Context, reservations []Reservation) {
	if err := r.cache.Replace(ctx, reservations); err != nil {
		r.logger.Warn("failed to mirror reservations into local cache", "err", err)
	}
}
