package domain

import "time"

type Direction string

const (
	DirectionAdd    Direction = "add"
	DirectionRemove Direction = "remove"
)

func (d Direction) Valid() bool {
	return d == DirectionAdd || d == DirectionRemove
}

// Adjustment is one add or remove request against a single blood type. Once
// applied, Balance carries the stored quantity after the change.
type Adjustment struct {
	ID        string
	Session   int
	Direction Direction
	Type      BloodType
	Amount    float64
	Balance   float64
	CreatedAt time.Time
}
