package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Board holds the live, pruned and grouped reservation state for the process.
// It is filled by Start and kept current by a repository subscription until
// Close is called.
type Board struct {
	repo    Repository
	catalog Catalog
	logger  *slog.Logger

	mu          sync.Mutex
	snapshot    Snapshot
	watchers    map[int]func(Snapshot)
	nextWatcher int
	unsubscribe func()
}

func NewBoard(repo Repository, catalog Catalog, logger *slog.Logger) *Board {
	return &Board{
		repo:     repo,
		catalog:  catalog,
		logger:   logger,
		snapshot: Group(nil, catalog.IDs()),
		watchers: make(map[int]func(Snapshot)),
	}
}

func (b *Board) Start(ctx context.Context) error {
	reservations, err := b.repo.Load(ctx)

	if err != nil {
		return fmt.Errorf("failed to load reservations: %w", err)
	}

	b.apply(reservations)

	unsubscribe, err := b.repo.Subscribe(ctx, b.apply)

	if err != nil {
		return fmt.Errorf("failed to subscribe to reservations: %w", err)
	}

	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()

	b.logger.Info("reservation board started", "machines", len(b.catalog))

	return nil
}

// Close stops following the repository. It is safe to call more than once.
func (b *Board) Close() {
	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (b *Board) Current() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.snapshot.clone()
}

// Watch calls fn with every new snapshot until the returned cancel function
// is called.
func (b *Board) Watch(fn func(Snapshot)) func() {
	b.mu.Lock()
	id := b.nextWatcher
	b.nextWatcher++
	b.watchers[id] = fn
	b.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.watchers, id)
			b.mu.Unlock()
		})
	}
}

func (b *Board) apply(reservations []Reservation) {
	snapshot := Group(Prune(reservations, time.Now()), b.catalog.IDs())

	b.mu.Lock()
	b.snapshot = snapshot
	watchers := make([]func(Snapshot), 0, len(b.watchers))
	for _, fn := range b.watchers {
		watchers = append(watchers, fn)
	}
	b.mu.Unlock()

	for _, fn := range watchers {
		fn(snapshot.clone())
	}
}
