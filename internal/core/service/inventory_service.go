package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/bloodbank/internal/core/domain"
	"github.com/rl1809/bloodbank/internal/port"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
)

type InventoryService struct {
	repo port.InventoryRepository

	mu      sync.RWMutex
	journal chan domain.Adjustment
	closed  bool
}

// NewInventoryService wraps repo. With journalSize > 0 every applied
// adjustment is also queued for the journal workers; a full queue drops the
// entry rather than stalling the client.
func NewInventoryService(repo port.InventoryRepository, journalSize int) *InventoryService {
	s := &InventoryService{repo: repo}
	if journalSize > 0 {
		s.journal = make(chan domain.Adjustment, journalSize)
	}
	return s
}

func (s *InventoryService) Bootstrap(ctx context.Context) error {
	return s.repo.Bootstrap(ctx)
}

func (s *InventoryService) Snapshot(ctx context.Context) (domain.Inventory, error) {
	return s.repo.ReadAll(ctx)
}

func (s *InventoryService) Adjust(ctx context.Context, session int, direction domain.Direction, t domain.BloodType, amount float64) (domain.Adjustment, error) {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return domain.Adjustment{}, ErrInvalidAmount
	}

	adj := domain.Adjustment{
		ID:        uuid.New().String(),
		Session:   session,
		Direction: direction,
		Type:      t,
		Amount:    amount,
	}

	balance, ok, err := s.repo.Adjust(ctx, adj)
	if err != nil {
		return adj, fmt.Errorf("adjust %s: %w", t, err)
	}
	if !ok {
		return adj, ErrInsufficientStock
	}

	adj.Balance = balance
	adj.CreatedAt = time.Now()
	s.enqueue(adj)

	return adj, nil
}

func (s *InventoryService) enqueue(adj domain.Adjustment) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.journal == nil || s.closed {
		return
	}
	select {
	case s.journal <- adj:
	default:
		log.Warn().Str("adjustment", adj.ID).Msg("journal queue full, entry dropped")
	}
}

// JournalQueue is nil when journaling is disabled.
func (s *InventoryService) JournalQueue() <-chan domain.Adjustment {
	return s.journal
}

func (s *InventoryService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.journal != nil {
		close(s.journal)
	}
}
