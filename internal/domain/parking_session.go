package domain

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

// ParkingSession is one physical parking event from entry to exit. A null
// ExitTime means the vehicle is still parked. Rows are append-only: exit
// closes a session, nothing ever deletes one.
type ParkingSession struct {
	ID              int       `json:"id"`
	SessionKey      string    `json:"session_key"`
	LotID           int       `json:"lot_id"`
	SpaceID         int       `json:"space_id"`
	Plate           string    `json:"plate"`
	StartTime       time.Time `json:"start_time"`
	ExitTime        null.Time `json:"exit_time"`
	DurationMinutes null.Int  `json:"duration_minutes"`
	Fee             null.Int  `json:"fee"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (s *ParkingSession) Open() bool {
	return !s.ExitTime.Valid
}

// NormalizePlate canonicalizes a license plate for identity comparison.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// SessionKey derives the composite session identity from the plate, the
// space and the entry timestamp. The timestamp is encoded as UTC unix
// seconds so the key is stable regardless of the zone a caller happens to
// carry. The key is computed exactly once, when the session is created, and
// stored on the row; payment reconciliation must use the same derivation.
func SessionKey(plate string, spaceID int, start time.Time) string {
	return fmt.Sprintf("%s|%d|%d", NormalizePlate(plate), spaceID, start.UTC().Truncate(time.Second).Unix())
}

type VehicleEntryDTO struct {
	Plate   string `json:"plate" binding:"required"`
	SpaceID int    `json:"space_id" binding:"required"`
}

type VehicleExitDTO struct {
	Plate string `json:"plate" binding:"required"`
}

// ExitResultDTO is the response for a vehicle exit: the closed session plus
// the computed bill.
type ExitResultDTO struct {
	Plate         string    `json:"plate"`
	SpaceID       int       `json:"space_id"`
	SessionKey    string    `json:"session_key"`
	StartTime     time.Time `json:"start_time"`
	ExitTime      time.Time `json:"exit_time"`
	DurationHours int64     `json:"duration_hours"`
	Fee           int64     `json:"fee"`
	PaymentStatus string    `json:"payment_status"`
}
