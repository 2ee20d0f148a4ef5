package domain

import "time"

type LotStatus string

const (
	LotOperating   LotStatus = "operating"
	LotMaintenance LotStatus = "maintenance"
	LotSuspended   LotStatus = "suspended"
)

func ValidLotStatus(s string) bool {
	switch LotStatus(s) {
	case LotOperating, LotMaintenance, LotSuspended:
		return true
	}
	return false
}

type ParkingLot struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address,omitempty"`
	HourlyRate int64     `json:"hourly_rate"`
	Status     LotStatus `json:"status"`
	MaxSpaces  int       `json:"max_spaces,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ParkingLotDTO struct {
	Name       string `json:"name" binding:"required"`
	Address    string `json:"address"`
	HourlyRate int64  `json:"hourly_rate" binding:"min=0"`
	MaxSpaces  int    `json:"max_spaces"`
}

// ParkingLotPatchDTO carries the partial admin update for PATCH /parking-lots/:id.
// Force lets a status change through even while the lot still has open sessions.
type ParkingLotPatchDTO struct {
	HourlyRate *int64  `json:"hourly_rate"`
	Status     *string `json:"status"`
	Force      bool    `json:"force"`
}
