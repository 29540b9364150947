package port

import (
	"context"

	"github.com/rl1809/bloodbank/internal/core/domain"
)

type InventoryRepository interface {
	// Bootstrap creates, validates and repairs the persisted inventory
	Bootstrap(ctx context.Context) error

	// ReadAll returns the current quantities in blood type order
	ReadAll(ctx context.Context) (domain.Inventory, error)

	// Adjust applies adj atomically, returns false without changes if a removal exceeds the stock
	Adjust(ctx context.Context, adj domain.Adjustment) (balance float64, applied bool, err error)
}
