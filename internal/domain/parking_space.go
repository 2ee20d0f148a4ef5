package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// ParkingSpace is one physical slot. It belongs to exactly one lot, fixed at
// provisioning time. Whether it is occupied is never stored here: occupancy
// is derived from the session log (see SpaceOccupancy).
type ParkingSpace struct {
	ID              int       `json:"id"`
	LotID           int       `json:"lot_id"`
	SpaceIdentifier string    `json:"space_identifier"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ParkingSpaceDTO struct {
	SpaceIdentifier string `json:"space_identifier" binding:"required"`
}

// SpaceOccupancy is the per-space row of the occupancy view, projected from
// the open-session index at read time.
type SpaceOccupancy struct {
	SpaceID         int         `json:"space_id"`
	SpaceIdentifier string      `json:"space_identifier"`
	LotID           int         `json:"lot_id"`
	Occupied        bool        `json:"occupied"`
	Plate           null.String `json:"plate,omitempty"`
	StartTime       null.Time   `json:"start_time,omitempty"`
}
