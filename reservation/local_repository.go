package reservation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const localStoreKey = "washingMachineReservations"

// LocalRepository keeps every reservation in a single JSON document inside a
// SQLite key-value table. Writers are serialized by mu, so a Guard sees the
// same state the insert is applied to.
type LocalRepository struct {
	db     *sql.DB
	logger *slog.Logger
	mu     sync.Mutex
	feeds  *broadcaster
}

func NewLocalRepository(db *sql.DB, logger *slog.Logger) *LocalRepository {
	return &LocalRepository{db: db, logger: logger, feeds: newBroadcaster()}
}

func (r *LocalRepository) Load(ctx context.Context) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(ctx)
}

func (r *LocalRepository) Subscribe(ctx context.Context, onSnapshot func([]Reservation)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read(ctx)

	if err != nil {
		return nil, err
	}

	f := r.feeds.subscribe(ctx, onSnapshot)
	f.push(current)

	return f.unsubscribe, nil
}

func (r *LocalRepository) Add(ctx context.Context, reservation Reservation, guard Guard) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.read(ctx)

	if err != nil {
		return Reservation{}, err
	}

	if guard != nil {
		sameMachine := slices.DeleteFunc(slices.Clone(all), func(existing Reservation) bool {
			return existing.MachineID != reservation.MachineID
		})

		if err := guard(sameMachine); err != nil {
			return Reservation{}, err
		}
	}

	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}

	if reservation.CreatedAt == nil {
		now := time.Now().UTC()
		reservation.CreatedAt = &now
	}

	all = append(all, reservation)

	if err := r.write(ctx, all); err != nil {
		return Reservation{}, err
	}

	return reservation, nil
}

func (r *LocalRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.read(ctx)

	if err != nil {
		return err
	}

	before := len(all)
	remaining := slices.DeleteFunc(all, func(existing Reservation) bool { return existing.ID == id })

	if len(remaining) == before {
		return ErrReservationNotFound
	}

	return r.write(ctx, remaining)
}

func (r *LocalRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(ctx, nil)
}

// Replace overwrites the stored state with reservations. It is used to mirror
// a remote snapshot into the local cache.
func (r *LocalRepository) Replace(ctx context.Context, reservations []Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(ctx, reservations)
}

// republish sends the stored state to every subscriber again.
func (r *LocalRepository) republish(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.read(ctx)

	if err != nil {
		return err
	}

	r.feeds.publish(all)

	return nil
}

func (r *LocalRepository) Status(ctx context.Context) Status {
	return Status{
		Mode:          ModeOffline,
		RemoteEnabled: false,
		Connection:    ConnectionStatus{Success: false, Error: "remote store not configured"},
	}
}

func (r *LocalRepository) read(ctx context.Context) ([]Reservation, error) {
	var value string

	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, localStoreKey).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return []Reservation{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read local reservations: %w", err)
	}

	var grouped map[MachineID][]Reservation

	if err := json.Unmarshal([]byte(value), &grouped); err != nil {
		r.logger.Warn("discarding unreadable local reservations", "err", err)
		return []Reservation{}, nil
	}

	all := []Reservation{}

	for machine, list := range grouped {
		for _, reservation := range list {
			if reservation.MachineID == "" {
				reservation.MachineID = machine
			}
			all = append(all, reservation)
		}
	}

	return all, nil
}

// write persists reservations and notifies subscribers. Callers hold mu.
func (r *LocalRepository) write(ctx context.Context, reservations []Reservation) error {
	grouped := make(map[MachineID][]Reservation)

	for _, reservation := range reservations {
		grouped[reservation.MachineID] = append(grouped[reservation.MachineID], reservation)
	}

	value, err := json.Marshal(grouped)

	if err != nil {
		return fmt.Errorf("failed to encode local reservations: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO kv_store (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		localStoreKey, string(value))

	if err != nil {
		return fmt.Errorf("failed to write local reservations: %w", err)
	}

	if reservations == nil {
		reservations = []Reservation{}
	}

	r.feeds.publish(reservations)

	return nil
}
