package reservation

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// feed delivers snapshots to one subscriber from a single goroutine. Only the
// newest pending snapshot is kept, so a slow subscriber skips intermediate
// states instead of blocking the publisher.
type feed struct {
	updates chan []Reservation
	stopped atomic.Bool
	cancel  context.CancelFunc
	once    sync.Once
}

func startFeed(ctx context.Context, onSnapshot func([]Reservation)) (*feed, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	f := &feed{
		updates: make(chan []Reservation, 1),
		cancel:  cancel,
	}

	go f.run(ctx, onSnapshot)

	return f, ctx
}

func (f *feed) run(ctx context.Context, onSnapshot func([]Reservation)) {
	defer f.unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case reservations := <-f.updates:
			if f.stopped.Load() {
				return
			}
			onSnapshot(reservations)
		}
	}
}

func (f *feed) push(reservations []Reservation) {
	if f.stopped.Load() {
		return
	}

	reservations = slices.Clone(reservations)

	for {
		select {
		case f.updates <- reservations:
			return
		default:
		}

		select {
		case <-f.updates:
		default:
		}
	}
}

// unsubscribe is idempotent and may be called from inside the callback. It
// does not wait: a callback that is running or has already dequeued its
// snapshot still completes, but no later snapshot is delivered.
func (f *feed) unsubscribe() {
	f.once.Do(func() {
		f.stopped.Store(true)
		f.cancel()
	})
}

type broadcaster struct {
	mu    sync.Mutex
	feeds map[*feed]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{feeds: make(map[*feed]struct{})}
}

func (b *broadcaster) subscribe(ctx context.Context, onSnapshot func([]Reservation)) *feed {
	f, _ := startFeed(ctx, onSnapshot)

	b.mu.Lock()
	b.feeds[f] = struct{}{}
	b.mu.Unlock()

	return f
}

func (b *broadcaster) publish(reservations []Reservation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for f := range b.feeds {
		if f.stopped.Load() {
			delete(b.feeds, f)
			continue
		}
		f.push(reservations)
	}
}
