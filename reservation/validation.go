package reservation

import (
	"fmt"
	"time"
)

type RejectionReason int

const (
	MissingOrMalformedTime RejectionReason = iota + 1
	InvertedRange
	OutsideOperatingHours
	ConflictsWithExisting
)

func (r RejectionReason) String() string {
	switch r {
	case MissingOrMalformedTime:
		return "missing_or_malformed_time"
	case InvertedRange:
		return "inverted_range"
	case OutsideOperatingHours:
		return "outside_operating_hours"
	case ConflictsWithExisting:
		return "conflicts_with_existing"
	default:
		return "unknown"
	}
}

func (r RejectionReason) sentinel() error {
	switch r {
	case MissingOrMalformedTime:
		return ErrMissingOrMalformedTime
	case InvertedRange:
		return ErrInvertedRange
	case OutsideOperatingHours:
		return ErrOutsideOperatingHours
	case ConflictsWithExisting:
		return ErrConflictsWithExisting
	default:
		return nil
	}
}

// ValidationError rejects a Proposal. Conflict is set only for
// ConflictsWithExisting and points at the reservation that was hit first.
type ValidationError struct {
	Reason   RejectionReason
	Conflict *Reservation
}

func (e *ValidationError) Error() string {
	if e.Conflict != nil {
		return fmt.Sprintf("%v: reserved by %v from %v to %v",
			e.Reason.sentinel(), e.Conflict.OwnerDisplayName, e.Conflict.StartTime, e.Conflict.EndTime)
	}

	return e.Reason.sentinel().Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Reason.sentinel()
}

// Range parses the proposed start and end times.
func (p Proposal) Range() (TimeOfDay, TimeOfDay, error) {
	start, startErr := ParseTimeOfDay(p.StartTime)
	end, endErr := ParseTimeOfDay(p.EndTime)

	if startErr != nil || endErr != nil {
		return 0, 0, &ValidationError{Reason: MissingOrMalformedTime}
	}

	return start, end, nil
}

// Validate decides whether proposed can be booked next to existing, which
// should hold the reservations already committed for the proposal's machine.
// Checks run in a fixed order and stop at the first failure. Intervals are
// half-open, so a slot ending at 10:00 leaves 10:00 free.
func Validate(proposed Proposal, existing []Reservation) error {
	start, end, err := proposed.Range()

	if err != nil {
		return err
	}

	if start >= end {
		return &ValidationError{Reason: InvertedRange}
	}

	if start < OperatingStart || end > OperatingEnd {
		return &ValidationError{Reason: OutsideOperatingHours}
	}

	for i := range existing {
		r := existing[i]

		if r.MachineID != proposed.MachineID || r.Day != proposed.Day {
			continue
		}

		if start < r.EndTime && end > r.StartTime {
			return &ValidationError{Reason: ConflictsWithExisting, Conflict: &r}
		}
	}

	return nil
}

// RetentionWindow is how long a reservation stays visible after creation.
const RetentionWindow = 7 * 24 * time.Hour

// Prune drops reservations created more than RetentionWindow before now.
// Reservations without a creation time are always kept.
func Prune(all []Reservation, now time.Time) []Reservation {
	kept := make([]Reservation, 0, len(all))

	for _, reservation := range all {
		if !expired(reservation, now) {
			kept = append(kept, reservation)
		}
	}

	return kept
}

// Expired returns the reservations Prune would drop.
func Expired(all []Reservation, now time.Time) []Reservation {
	var dropped []Reservation

	for _, reservation := range all {
		if expired(reservation, now) {
			dropped = append(dropped, reservation)
		}
	}

	return dropped
}

func expired(reservation Reservation, now time.Time) bool {
	return reservation.CreatedAt != nil && now.Sub(*reservation.CreatedAt) > RetentionWindow
}

// CanDelete reports whether actingUserID owns the reservation.
func CanDelete(reservation Reservation, actingUserID string) bool {
	return actingUserID != "" && reservation.OwnerID == actingUserID
}
