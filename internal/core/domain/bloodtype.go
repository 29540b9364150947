package domain

import (
	"errors"
	"fmt"
)

var ErrUnknownBloodType = errors.New("unknown blood type")

// BloodType is one of the eight ABO/Rh groups. Its value is the storage index.
type BloodType int

const (
	OPositive BloodType = iota
	ONegative
	APositive
	ANegative
	BPositive
	BNegative
	ABPositive
	ABNegative
)

// TypeCount is the number of tracked blood types.
const TypeCount = 8

var typeCodes = [TypeCount]string{"O+", "O-", "A+", "A-", "B+", "B-", "AB+", "AB-"}

// AllTypes returns every blood type in storage order.
func AllTypes() []BloodType {
	types := make([]BloodType, TypeCount)
	for i := range types {
		types[i] = BloodType(i)
	}
	return types
}

// ParseBloodType matches code exactly (case-sensitive) against the known codes.
func ParseBloodType(code string) (BloodType, error) {
	for i, c := range typeCodes {
		if c == code {
			return BloodType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBloodType, code)
}

func (t BloodType) Valid() bool {
	return t >= 0 && t < TypeCount
}

func (t BloodType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("BloodType(%d)", int(t))
	}
	return typeCodes[t]
}
