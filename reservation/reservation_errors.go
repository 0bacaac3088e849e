package reservation

import "errors"

var ErrReservationNotFound = errors.New("reservation not found")

var ErrNotAllowed = errors.New("not allowed to perform this operation")

var ErrUnknownMachine = errors.New("unknown machine")

var ErrInvalidDay = errors.New("invalid day")

var ErrStoreUnavailable = errors.New("reservation store unavailable")

var ErrPermissionDenied = errors.New("permission denied by reservation store")

var ErrMissingOrMalformedTime = errors.New("start and end time must be valid HH:MM values")

var ErrInvertedRange = errors.New("start time must be before end time")

var ErrOutsideOperatingHours = errors.New("reservations must start and end between 06:00 and 23:00")

var ErrConflictsWithExisting = errors.New("time range conflicts with an existing reservation")
