package reservation

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

type MachineID string

type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

func (d Day) Valid() bool {
	return slices.Contains(Days, d)
}

func (d Day) index() int {
	return slices.Index(Days, d)
}

// TimeOfDay is a wall-clock time with minute granularity, stored as minutes
// since midnight and encoded as "HH:MM".
type TimeOfDay int

const (
	OperatingStart TimeOfDay = 6 * 60
	OperatingEnd   TimeOfDay = 23 * 60
)

func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	hours, minutes, ok := strings.Cut(value, ":")

	if !ok || len(hours) < 1 || len(hours) > 2 || len(minutes) != 2 || !isDigits(hours) || !isDigits(minutes) {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}

	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)

	if h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}

	return TimeOfDay(h*60 + m), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var value string

	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}

	parsed, err := ParseTimeOfDay(value)

	if err != nil {
		return err
	}

	*t = parsed
	return nil
}

type Reservation struct {
	ID               string     `json:"id"`
	MachineID        MachineID  `json:"machine"`
	Day              Day        `json:"day"`
	StartTime        TimeOfDay  `json:"startTime"`
	EndTime          TimeOfDay  `json:"endTime"`
	OwnerID          string     `json:"userId"`
	OwnerDisplayName string     `json:"userName"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
}

// Proposal is a reservation request that has not been validated or stored.
// Times are kept in their raw form so malformed input can be reported.
type Proposal struct {
	MachineID MachineID `json:"machine"`
	Day       Day       `json:"day"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
}

// Owner identifies the user a reservation is created for.
type Owner struct {
	ID          string
	DisplayName string
}

// Snapshot is the full reservation state grouped by machine.
type Snapshot map[MachineID][]Reservation

// Group builds a Snapshot containing every machine in machines. Reservations
// for machines outside that list are dropped. Each machine's reservations are
// ordered by day, then start time.
func Group(reservations []Reservation, machines []MachineID) Snapshot {
	snapshot := make(Snapshot, len(machines))

	for _, machine := range machines {
		snapshot[machine] = []Reservation{}
	}

	for _, reservation := range reservations {
		if _, ok := snapshot[reservation.MachineID]; !ok {
			continue
		}
		snapshot[reservation.MachineID] = append(snapshot[reservation.MachineID], reservation)
	}

	for _, list := range snapshot {
		slices.SortStableFunc(list, func(a, b Reservation) int {
			if a.Day != b.Day {
				return a.Day.index() - b.Day.index()
			}
			return int(a.StartTime - b.StartTime)
		})
	}

	return snapshot
}

func (s Snapshot) clone() Snapshot {
	cloned := make(Snapshot, len(s))

	for machine, list := range s {
		cloned[machine] = slices.Clone(list)
	}

	return cloned
}
