package port

import (
	"context"

	"github.com/rl1809/bloodbank/internal/core/domain"
)

type JournalRepository interface {
	// RecordAdjustment persists one applied adjustment
	RecordAdjustment(ctx context.Context, adj domain.Adjustment) error

	// RecentAdjustments returns the newest entries first
	RecentAdjustments(ctx context.Context, limit int) ([]domain.Adjustment, error)
}
