package reservation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	rsv "github.com/hanksha/laundry-booking-backend/reservation"
	rsv_mocks "github.com/hanksha/laundry-booking-backend/reservation/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testDeps struct {
	repo    *rsv_mocks.MockRepository
	service *rsv.Service
	ctx     context.Context
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDeps(t *testing.T) (*gomock.Controller, testDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)

	repo := rsv_mocks.NewMockRepository(ctrl)
	svc := rsv.NewService(repo, rsv.DefaultCatalog(), discardLogger())

	return ctrl, testDeps{repo: repo, service: svc, ctx: context.Background()}
}

// runGuard makes the mocked Add behave like a store: it runs the guard
// against stored and returns the reservation with an id on success.
func runGuard(stored []rsv.Reservation) func(context.Context, rsv.Reservation, rsv.Guard) (rsv.Reservation, error) {
	return func(_ context.Context, reservation rsv.Reservation, guard rsv.Guard) (rsv.Reservation, error) {
		if err := guard(stored); err != nil {
			return rsv.Reservation{}, err
		}
		now := time.Now().UTC()
		reservation.ID = "new-id"
		reservation.CreatedAt = &now
		return reservation, nil
	}
}

func TestListReservations(t *testing.T) {
	t.Run("prunes and groups", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		old := time.Now().Add(-10 * 24 * time.Hour)
		stored := []rsv.Reservation{
			existingSlot(t, "machine1", rsv.Monday, "09:00", "10:00"),
			{ID: "expired", MachineID: "machine2", Day: rsv.Monday, StartTime: 600, EndTime: 660, CreatedAt: &old},
		}

		deps.repo.EXPECT().Load(deps.ctx).Return(stored, nil).Times(1)

		snapshot, err := deps.service.ListReservations(deps.ctx)

		require.NoError(t, err)
		assert.Len(t, snapshot["machine1"], 1)
		assert.Empty(t, snapshot["machine2"])
		assert.Contains(t, snapshot, rsv.MachineID("dryer"))
	})

	t.Run("repo error", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.repo.EXPECT().Load(deps.ctx).Return(nil, rsv.ErrStoreUnavailable).Times(1)

		_, err := deps.service.ListReservations(deps.ctx)

		assert.ErrorIs(t, err, rsv.ErrStoreUnavailable)
	})
}

func TestListMachineReservations(t *testing.T) {
	ctrl, deps := newTestDeps(t)
	defer ctrl.Finish()

	_, err := deps.service.ListMachineReservations(deps.ctx, "laundromat")
	assert.ErrorIs(t, err, rsv.ErrUnknownMachine)

	deps.repo.EXPECT().Load(deps.ctx).Return([]rsv.Reservation{existingSlot(t, "dryer", rsv.Monday, "09:00", "10:00")}, nil).Times(1)

	reservations, err := deps.service.ListMachineReservations(deps.ctx, "dryer")

	require.NoError(t, err)
	assert.Len(t, reservations, 1)
}

func TestCreateReservation(t *testing.T) {
	owner := rsv.Owner{ID: "user-1", DisplayName: "Ana"}

	t.Run("success", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.repo.EXPECT().Add(deps.ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(runGuard([]rsv.Reservation{existingSlot(t, "machine1", rsv.Monday, "09:00", "10:00")})).
			Times(1)

		created, err := deps.service.CreateReservation(deps.ctx,
			rsv.Proposal{MachineID: "machine1", Day: rsv.Monday, StartTime: "10:00", EndTime: "11:30"}, owner)

		require.NoError(t, err)
		assert.Equal(t, "new-id", created.ID)
		assert.Equal(t, "user-1", created.OwnerID)
		assert.Equal(t, "Ana", created.OwnerDisplayName)
		assert.Equal(t, "10:00", created.StartTime.String())
		assert.Equal(t, "11:30", created.EndTime.String())
		assert.NotNil(t, created.CreatedAt)
	})

	t.Run("conflict reported by guard", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.repo.EXPECT().Add(deps.ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(runGuard([]rsv.Reservation{existingSlot(t, "machine1", rsv.Monday, "09:00", "10:00")})).
			Times(1)

		_, err := deps.service.CreateReservation(deps.ctx,
			rsv.Proposal{MachineID: "machine1", Day: rsv.Monday, StartTime: "09:30", EndTime: "10:30"}, owner)

		requireReason(t, err, rsv.ConflictsWithExisting)
	})

	t.Run("expired reservations do not block", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		old := time.Now().Add(-8 * 24 * time.Hour)
		stale := existingSlot(t, "machine1", rsv.Monday, "09:00", "10:00")
		stale.CreatedAt = &old

		deps.repo.EXPECT().Add(deps.ctx, gomock.Any(), gomock.Any()).DoAndReturn(runGuard([]rsv.Reservation{stale})).Times(1)

		_, err := deps.service.CreateReservation(deps.ctx,
			rsv.Proposal{MachineID: "machine1", Day: rsv.Monday, StartTime: "09:00", EndTime: "10:00"}, owner)

		assert.NoError(t, err)
	})

	t.Run("display name falls back to id", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.repo.EXPECT().Add(deps.ctx, gomock.Any(), gomock.Any()).DoAndReturn(runGuard(nil)).Times(1)

		created, err := deps.service.CreateReservation(deps.ctx,
			rsv.Proposal{MachineID: "dryer", Day: rsv.Sunday, StartTime: "06:00", EndTime: "08:00"}, rsv.Owner{ID: "user-2", DisplayName: "  "})

		require.NoError(t, err)
		assert.Equal(t, "user-2", created.OwnerDisplayName)
	})

	t.Run("rejected before reaching the store", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.repo.EXPECT().Add(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := deps.service.CreateReservation(deps.ctx,
			rsv.Proposal{MachineID: "machine9", Day: rsv.Monday, StartTime: "09:00", EndTime: "10:00"}, owner)
		assert.ErrorIs(t, err, rsv.ErrUnknownMachine)

		_, err = deps.service.CreateReservation(deps.ctx,
			rsv.Proposal{MachineID: "machine1", Day: "Funday", StartTime: "09:00", EndTime: "10:00"}, owner)
		assert.ErrorIs(t, err, rsv.ErrInvalidDay)

		_, err = deps.service.CreateReservation(deps.ctx,
			rsv.Proposal{MachineID: "machine1", Day: rsv.Monday, StartTime: "9", EndTime: "10:00"}, owner)
		requireReason(t, err, rsv.MissingOrMalformedTime)

		_, err = deps.service.CreateReservation(deps.ctx,
			rsv.Proposal{MachineID: "machine1", Day: rsv.Monday, StartTime: "09:00", EndTime: "10:00"}, rsv.Owner{})
		assert.ErrorIs(t, err, rsv.ErrNotAllowed)
	})

	t.Run("store error", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.repo.EXPECT().Add(deps.ctx, gomock.Any(), gomock.Any()).Return(rsv.Reservation{}, rsv.ErrPermissionDenied).Times(1)

		_, err := deps.service.CreateReservation(deps.ctx,
			rsv.Proposal{MachineID: "machine1", Day: rsv.Monday, StartTime: "09:00", EndTime: "10:00"}, owner)

		assert.ErrorIs(t, err, rsv.ErrPermissionDenied)
	})
}

func TestDeleteReservation(t *testing.T) {
	stored := []rsv.Reservation{{ID: "r1", MachineID: "machine1", Day: rsv.Monday, StartTime: 540, EndTime: 600, OwnerID: "user-1"}}

	t.Run("owner deletes", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.repo.EXPECT().Load(deps.ctx).Return(stored, nil).Times(1)
		deps.repo.EXPECT().Delete(deps.ctx, "r1").Return(nil).Times(1)

		assert.NoError(t, deps.service.DeleteReservation(deps.ctx, "r1", "user-1"))
	})

	t.Run("other user is refused", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.repo.EXPECT().Load(deps.ctx).Return(stored, nil).Times(1)
		deps.repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

		assert.ErrorIs(t, deps.service.DeleteReservation(deps.ctx, "r1", "user-2"), rsv.ErrNotAllowed)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.repo.EXPECT().Load(deps.ctx).Return(stored, nil).Times(1)

		assert.ErrorIs(t, deps.service.DeleteReservation(deps.ctx, "missing", "user-1"), rsv.ErrReservationNotFound)
	})

	t.Run("store error", func(t *testing.T) {
		ctrl, deps := newTestDeps(t)
		defer ctrl.Finish()

		deps.repo.EXPECT().Load(deps.ctx).Return(stored, nil).Times(1)
		deps.repo.EXPECT().Delete(deps.ctx, "r1").Return(rsv.ErrStoreUnavailable).Times(1)

		assert.ErrorIs(t, deps.service.DeleteReservation(deps.ctx, "r1", "user-1"), rsv.ErrStoreUnavailable)
	})
}

func TestClearReservations(t *testing.T) {
	ctrl, deps := newTestDeps(t)
	defer ctrl.Finish()

	deps.repo.EXPECT().Clear(deps.ctx).Return(nil).Times(1)
	assert.NoError(t, deps.service.ClearReservations(deps.ctx))

	deps.repo.EXPECT().Clear(deps.ctx).Return(errors.New("boom")).Times(1)
	assert.Error(t, deps.service.ClearReservations(deps.ctx))
}

func TestPurgeExpired(t *testing.T) {
	ctrl, deps := newTestDeps(t)
	defer ctrl.Finish()

	now := time.Now()
	old := now.Add(-9 * 24 * time.Hour)
	older := now.Add(-30 * 24 * time.Hour)
	fresh := now.Add(-time.Hour)

	deps.repo.EXPECT().Load(deps.ctx).Return([]rsv.Reservation{
		{ID: "a", CreatedAt: &old},
		{ID: "b", CreatedAt: &fresh},
		{ID: "c", CreatedAt: &older},
		{ID: "d"},
	}, nil).Times(1)
	deps.repo.EXPECT().Delete(deps.ctx, "a").Return(nil).Times(1)
	deps.repo.EXPECT().Delete(deps.ctx, "c").Return(rsv.ErrReservationNotFound).Times(1)

	purged, err := deps.service.PurgeExpired(deps.ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}

func TestRunRetention(t *testing.T) {
	ctrl, deps := newTestDeps(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan struct{}, 1)

	deps.repo.EXPECT().Load(gomock.Any()).DoAndReturn(func(context.Context) ([]rsv.Reservation, error) {
		select {
		case swept <- struct{}{}:
		default:
		}
		return nil, nil
	}).MinTimes(1)

	done := make(chan struct{})
	go func() {
		deps.service.RunRetention(ctx, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("retention sweep did not run")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retention loop did not stop")
	}
}

func TestStatus(t *testing.T) {
	ctrl, deps := newTestDeps(t)
	defer ctrl.Finish()

	assert.Equal(t, rsv.ModeOffline, deps.service.Status(deps.ctx).Mode)
}
