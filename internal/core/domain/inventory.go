package domain

import (
	"math"
	"strconv"
)

// Inventory holds the liters on hand per blood type, indexed by BloodType.
type Inventory [TypeCount]float64

// SeedInventory is written when the store is missing or too short to repair.
var SeedInventory = Inventory{36, 9, 34, 8, 8, 2, 2.5, 0.5}

func (inv Inventory) Get(t BloodType) float64 {
	return inv[t]
}

func (inv Inventory) Total() float64 {
	var total float64
	for _, v := range inv {
		total += v
	}
	return total
}

// Share returns the percentage of the total held by t. An empty inventory
// reports 0 for every type.
func (inv Inventory) Share(t BloodType) float64 {
	total := inv.Total()
	if total == 0 {
		return 0
	}
	return inv[t] / total * 100
}

// FormatLiters renders v the way quantities are persisted and echoed back to
// clients: integral values keep one decimal ("38.0"), others use the shortest
// exact representation ("2.5").
func FormatLiters(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
