package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const changeChannel = "reservations_changed"

const (
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
)

type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu           sync.Mutex
	onDisconnect []func(error)
}

func NewPostgresRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{pool: pool, logger: logger}
}

const selectColumns = `id::text, machine, day, start_minute, end_minute, user_id, user_name, created_at`

func (r *PostgresRepository) Load(ctx context.Context) ([]Reservation, error) {
	sql := `SELECT ` + selectColumns + `
            FROM laundry.reservation
            ORDER BY created_at;
        `

	rows, err := r.pool.Query(ctx, sql)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservations: %w", classify(err))
	}

	return collectReservations(rows)
}

func collectReservations(rows pgx.Rows) ([]Reservation, error) {
	defer rows.Close()

	reservations := []Reservation{}

	for rows.Next() {
		var reservation Reservation
		var createdAt time.Time

		err := rows.Scan(
			&reservation.ID,
			&reservation.MachineID,
			&reservation.Day,
			&reservation.StartTime,
			&reservation.EndTime,
			&reservation.OwnerID,
			&reservation.OwnerDisplayName,
			&createdAt,
		)

		if err != nil {
			return nil, fmt.Errorf("error scanning reservation row: %w", err)
		}

		createdAt = createdAt.UTC()
		reservation.CreatedAt = &createdAt
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservation rows: %w", classify(err))
	}

	return reservations, nil
}

// Add inserts reservation after guard accepted the machine's current rows.
// Concurrent adds for the same machine are serialized by a transaction-scoped
// advisory lock.
func (r *PostgresRepository) Add(ctx context.Context, reservation Reservation, guard Guard) (Reservation, error) {
	tx, err := r.pool.Begin(ctx)

	if err != nil {
		return Reservation{}, fmt.Errorf("failed to begin transaction: %w", classify(err))
	}

	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, string(reservation.MachineID)); err != nil {
		return Reservation{}, fmt.Errorf("failed to lock machine %v: %w", reservation.MachineID, classify(err))
	}

	if guard != nil {
		sql := `SELECT ` + selectColumns + `
                FROM laundry.reservation
                WHERE machine=$1;
            `

		rows, err := tx.Query(ctx, sql, string(reservation.MachineID))

		if err != nil {
			return Reservation{}, fmt.Errorf("failed to fetch reservations for machine %v: %w", reservation.MachineID, classify(err))
		}

		existing, err := collectReservations(rows)

		if err != nil {
			return Reservation{}, err
		}

		if err := guard(existing); err != nil {
			return Reservation{}, err
		}
	}

	sql := `
            INSERT INTO laundry.reservation(
            machine, day, start_minute, end_minute, user_id, user_name)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING id::text, created_at;
        `

	var createdAt time.Time

	err = tx.QueryRow(ctx, sql,
		string(reservation.MachineID),
		string(reservation.Day),
		int(reservation.StartTime),
		int(reservation.EndTime),
		reservation.OwnerID,
		reservation.OwnerDisplayName,
	).Scan(&reservation.ID, &createdAt)

	if err != nil {
		return Reservation{}, fmt.Errorf("failed to insert reservation: %w", classify(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return Reservation{}, fmt.Errorf("failed to commit reservation: %w", classify(err))
	}

	createdAt = createdAt.UTC()
	reservation.CreatedAt = &createdAt

	return reservation, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrReservationNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM laundry.reservation WHERE id=$1;`, id)

	if err != nil {
		return fmt.Errorf("failed to delete reservation %v: %w", id, classify(err))
	}

	if tag.RowsAffected() == 0 {
		return ErrReservationNotFound
	}

	return nil
}

func (r *PostgresRepository) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM laundry.reservation;`); err != nil {
		return fmt.Errorf("failed to clear reservations: %w", classify(err))
	}

	return nil
}

func (r *PostgresRepository) Status(ctx context.Context) Status {
	status := Status{Mode: ModeOnline, RemoteEnabled: true}

	var count int

	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM laundry.reservation;`).Scan(&count)

	if err != nil {
		status.Mode = ModeOffline
		status.Connection = ConnectionStatus{Success: false, Error: classify(err).Error()}
		return status
	}

	status.Connection = ConnectionStatus{Success: true, Count: count}

	return status
}

func (r *PostgresRepository) OnDisconnect(fn func(err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onDisconnect = append(r.onDisconnect, fn)
}

func (r *PostgresRepository) disconnected(err error) {
	r.mu.Lock()
	handlers := slices.Clone(r.onDisconnect)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(err)
	}
}

// Subscribe delivers the current reservations and then a fresh copy after
// every change notification. A dropped connection is re-established with
// backoff and followed by a resync.
func (r *PostgresRepository) Subscribe(ctx context.Context, onSnapshot func([]Reservation)) (func(), error) {
	conn, err := r.listen(ctx)

	if err != nil {
		return nil, err
	}

	initial, err := r.Load(ctx)

	if err != nil {
		closeListener(conn)
		return nil, err
	}

	f, feedCtx := startFeed(ctx, onSnapshot)
	f.push(initial)

	go r.watch(feedCtx, conn, f)

	return f.unsubscribe, nil
}

func (r *PostgresRepository) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := r.pool.Acquire(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to acquire listener connection: %w", classify(err))
	}

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen for reservation changes: %w", classify(err))
	}

	return conn, nil
}

// closeListener takes the connection out of the pool so its LISTEN state does
// not leak to other users.
func closeListener(conn *pgxpool.Conn) {
	pgConn := conn.Hijack()
	pgConn.Close(context.Background())
}

func (r *PostgresRepository) watch(ctx context.Context, conn *pgxpool.Conn, f *feed) {
	defer func() {
		if conn != nil {
			closeListener(conn)
		}
	}()

	delay := minReconnectDelay

	for {
		_, err := conn.Conn().WaitForNotification(ctx)

		if ctx.Err() != nil {
			return
		}

		if err == nil {
			delay = minReconnectDelay

			reservations, err := r.Load(ctx)

			if err != nil {
				r.logger.Error("failed to reload reservations after change", "err", err)
				continue
			}

			f.push(reservations)
			continue
		}

		r.logger.Warn("reservation listener disconnected", "err", err)
		closeListener(conn)
		conn = nil
		r.disconnected(classify(err))

		for conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			conn, err = r.listen(ctx)

			if err != nil {
				r.logger.Warn("failed to re-establish reservation listener", "err", err, "retryIn", delay)
				delay = min(delay*2, maxReconnectDelay)
				continue
			}
		}

		reservations, err := r.Load(ctx)

		if err != nil {
			r.logger.Error("failed to resync reservations", "err", err)
			continue
		}

		r.logger.Info("reservation listener reconnected")
		f.push(reservations)
	}
}

// classify maps driver failures onto ErrPermissionDenied and
// ErrStoreUnavailable so callers can decide whether a fallback applies.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501":
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error

	if errors.As(err, &connectErr) || errors.As(err, &netErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return err
}
