package api

//go:generate mockgen -source=reservation_handler.go -destination=mocks/mock_reservation_service.go -package=mocks

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/laundry-booking-backend/identity"
	rsv "github.com/hanksha/laundry-booking-backend/reservation"
)

type ReservationService interface {
	ListReservations(ctx context.Context) (rsv.Snapshot, error)
	ListMachineReservations(ctx context.Context, machine rsv.MachineID) ([]rsv.Reservation, error)
	CreateReservation(ctx context.Context, proposal rsv.Proposal, owner rsv.Owner) (rsv.Reservation, error)
	DeleteReservation(ctx context.Context, id string, actingUserID string) error
	ClearReservations(ctx context.Context) error
}

// SnapshotFeed is the live reservation state pushed to streaming clients.
type SnapshotFeed interface {
	Current() rsv.Snapshot
	Watch(fn func(rsv.Snapshot)) func()
}

type ReservationHandler struct {
	service ReservationService
	feed    SnapshotFeed
}

func NewReservationHandler(service ReservationService, feed SnapshotFeed) *ReservationHandler {
	return &ReservationHandler{service: service, feed: feed}
}

func (h *ReservationHandler) Register(rg *gin.RouterGroup) {
	adminOnly := AdminOnly()
	rg.GET("", h.List)
	rg.GET("/stream", h.Stream)
	rg.GET("/machine/:machine", h.ListForMachine)
	rg.POST("", h.Create)
	rg.DELETE("", adminOnly, h.Clear)
	rg.DELETE("/:id", h.Delete)
}

func (h *ReservationHandler) List(c *gin.Context) {
	if snapshot, err := h.service.ListReservations(c.Request.Context()); err != nil {
		c.Error(err)
		c.JSON(storeErrorStatus(err), gin.H{
			"error": "failed to retrieve reservations",
		})
	} else {
		c.IndentedJSON(http.StatusOK, snapshot)
	}
}

func (h *ReservationHandler) ListForMachine(c *gin.Context) {
	machine := rsv.MachineID(c.Param("machine"))
	reservations, err := h.service.ListMachineReservations(c.Request.Context(), machine)

	if err != nil {
		c.Error(err)
		if errors.Is(err, rsv.ErrUnknownMachine) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "machine not found",
			})
			return
		}
		c.JSON(storeErrorStatus(err), gin.H{
			"error": "failed to retrieve reservations",
		})
		return
	}

	c.IndentedJSON(http.StatusOK, reservations)
}

// Stream sends the current snapshot as a server-sent event and then one
// event per change until the client disconnects.
func (h *ReservationHandler) Stream(c *gin.Context) {
	updates := make(chan rsv.Snapshot, 1)

	cancel := h.feed.Watch(func(snapshot rsv.Snapshot) {
		for {
			select {
			case updates <- snapshot:
				return
			default:
			}

			select {
			case <-updates:
			default:
			}
		}
	})
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("snapshot", h.feed.Current())
	c.Writer.Flush()

	ctx := c.Request.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-updates:
			c.SSEvent("snapshot", snapshot)
			c.Writer.Flush()
		}
	}
}

type createReservationRequest struct {
	rsv.Proposal
	UserName string `json:"userName"`
}

func (h *ReservationHandler) Create(c *gin.Context) {
	user := c.MustGet("user").(identity.User)
	var request createReservationRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "failed to parse JSON body",
		})
		return
	}

	displayName := strings.TrimSpace(request.UserName)

	if len(displayName) == 0 {
		displayName = user.DisplayName()
	}

	inserted, err := h.service.CreateReservation(c.Request.Context(), request.Proposal, rsv.Owner{
		ID:          user.ID,
		DisplayName: displayName,
	})

	if err != nil {
		c.Error(err)
		respondCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inserted)
}

func respondCreateError(c *gin.Context, err error) {
	var validationErr *rsv.ValidationError

	switch {
	case errors.As(err, &validationErr) && validationErr.Reason == rsv.ConflictsWithExisting:
		body := gin.H{
			"error":  validationErr.Error(),
			"reason": validationErr.Reason.String(),
		}
		if conflict := validationErr.Conflict; conflict != nil {
			body["conflict"] = gin.H{
				"id":        conflict.ID,
				"userName":  conflict.OwnerDisplayName,
				"startTime": conflict.StartTime,
				"endTime":   conflict.EndTime,
			}
		}
		c.JSON(http.StatusConflict, body)
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  validationErr.Error(),
			"reason": validationErr.Reason.String(),
		})
	case errors.Is(err, rsv.ErrUnknownMachine):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown machine"})
	case errors.Is(err, rsv.ErrInvalidDay):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid day"})
	case errors.Is(err, rsv.ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	default:
		c.JSON(storeErrorStatus(err), gin.H{"error": "failed to create reservation"})
	}
}

func (h *ReservationHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	user := c.MustGet("user").(identity.User)

	err := h.service.DeleteReservation(c.Request.Context(), id, user.ID)

	if err != nil {
		c.Error(err)
		if errors.Is(err, rsv.ErrReservationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "reservation not found",
			})
		} else if errors.Is(err, rsv.ErrNotAllowed) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "only the owner can delete this reservation",
			})
		} else {
			c.JSON(storeErrorStatus(err), gin.H{
				"error": "failed to delete reservation",
			})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ReservationHandler) Clear(c *gin.Context) {
	if err := h.service.ClearReservations(c.Request.Context()); err != nil {
		c.Error(err)
		c.JSON(storeErrorStatus(err), gin.H{
			"error": "failed to clear reservations",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, rsv.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, rsv.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(identity.User)

		if !user.Admin {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			c.Abort()
			return
		}
	}
}
