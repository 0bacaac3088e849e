package reservation

//go:generate mockgen -source=reservation_service.go -destination=mocks/mock_repository.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Guard is run by a Repository against the reservations currently stored for
// the machine being booked. A non-nil error aborts the insert and is returned
// to the caller unchanged.
type Guard func(existing []Reservation) error

type Repository interface {
	Load(ctx context.Context) ([]Reservation, error)
	Subscribe(ctx context.Context, onSnapshot func([]Reservation)) (func(), error)
	Add(ctx context.Context, reservation Reservation, guard Guard) (Reservation, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

type ConnectionStatus struct {
	Success bool   `json:"success"`
	Count   int    `json:"docCount"`
	Error   string `json:"error,omitempty"`
}

type Status struct {
	Mode          string           `json:"mode"`
	RemoteEnabled bool             `json:"remoteEnabled"`
	Connection    ConnectionStatus `json:"connection"`
}

// StatusReporter is implemented by repositories that can describe their
// backend and test its connection.
type StatusReporter interface {
	Status(ctx context.Context) Status
}

// DisconnectNotifier is implemented by repositories whose live subscription
// can lose its connection. fn runs each time the connection drops.
type DisconnectNotifier interface {
	OnDisconnect(fn func(err error))
}

type Service struct {
	repo    Repository
	catalog Catalog
	logger  *slog.Logger
}

func NewService(repo Repository, catalog Catalog, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, logger: logger}
}

func (s *Service) Machines() Catalog {
	return s.catalog
}

func (s *Service) ListReservations(ctx context.Context) (Snapshot, error) {
	reservations, err := s.repo.Load(ctx)

	if err != nil {
		return nil, err
	}

	return Group(Prune(reservations, time.Now()), s.catalog.IDs()), nil
}

func (s *Service) ListMachineReservations(ctx context.Context, machine MachineID) ([]Reservation, error) {
	if !s.catalog.Has(machine) {
		return nil, ErrUnknownMachine
	}

	snapshot, err := s.ListReservations(ctx)

	if err != nil {
		return nil, err
	}

	return snapshot[machine], nil
}

func (s *Service) CreateReservation(ctx context.Context, proposal Proposal, owner Owner) (Reservation, error) {
	if owner.ID == "" {
		return Reservation{}, ErrNotAllowed
	}

	if !s.catalog.Has(proposal.MachineID) {
		return Reservation{}, ErrUnknownMachine
	}

	if !proposal.Day.Valid() {
		return Reservation{}, ErrInvalidDay
	}

	start, end, err := proposal.Range()

	if err != nil {
		return Reservation{}, err
	}

	displayName := strings.TrimSpace(owner.DisplayName)

	if len(displayName) == 0 {
		displayName = owner.ID
	}

	toInsert := Reservation{
		MachineID:        proposal.MachineID,
		Day:              proposal.Day,
		StartTime:        start,
		EndTime:          end,
		OwnerID:          owner.ID,
		OwnerDisplayName: displayName,
	}

	inserted, err := s.repo.Add(ctx, toInsert, func(existing []Reservation) error {
		return Validate(proposal, Prune(existing, time.Now()))
	})

	if err != nil {
		return Reservation{}, err
	}

	s.logger.Info("reservation created",
		"id", inserted.ID, "machine", inserted.MachineID, "day", inserted.Day,
		"start", inserted.StartTime.String(), "end", inserted.EndTime.String(), "owner", inserted.OwnerID)

	return inserted, nil
}

func (s *Service) DeleteReservation(ctx context.Context, id string, actingUserID string) error {
	reservations, err := s.repo.Load(ctx)

	if err != nil {
		return err
	}

	var target *Reservation

	for i := range reservations {
		if reservations[i].ID == id {
			target = &reservations[i]
			break
		}
	}

	if target == nil {
		return ErrReservationNotFound
	}

	if !CanDelete(*target, actingUserID) {
		return ErrNotAllowed
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	s.logger.Info("reservation deleted", "id", id, "owner", actingUserID)

	return nil
}

func (s *Service) ClearReservations(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear reservations: %w", err)
	}

	s.logger.Warn("all reservations cleared")

	return nil
}

// PurgeExpired deletes reservations that fell out of the retention window and
// returns how many were removed.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	reservations, err := s.repo.Load(ctx)

	if err != nil {
		return 0, err
	}

	purged := 0

	for _, reservation := range Expired(reservations, now) {
		err := s.repo.Delete(ctx, reservation.ID)

		if errors.Is(err, ErrReservationNotFound) {
			continue
		}

		if err != nil {
			return purged, fmt.Errorf("failed to purge reservation %v: %w", reservation.ID, err)
		}

		purged++
	}

	return purged, nil
}

// RunRetention purges expired reservations every interval until ctx is done.
func (s *Service) RunRetention(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Info("retention sweep disabled")
		return
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			purged, err := s.PurgeExpired(ctx, time.Now())

			if err != nil {
				s.logger.Error("retention sweep failed", "err", err)
			} else if purged > 0 {
				s.logger.Info("retention sweep removed expired reservations", "count", purged)
			}

			timer.Reset(interval)
		}
	}
}

func (s *Service) Status(ctx context.Context) Status {
	if reporter, ok := s.repo.(StatusReporter); ok {
		return reporter.Status(ctx)
	}

	return Status{Mode: ModeOffline}
}
