package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rl1809/bloodbank/internal/core/domain"
	"github.com/rl1809/bloodbank/internal/port"
)

const journalWriteTimeout = 5 * time.Second

// StartJournalWorkers drains queue into journal with n workers. The returned
// WaitGroup completes once queue is closed and drained.
func StartJournalWorkers(n int, queue <-chan domain.Adjustment, journal port.JournalRepository) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			journalLoop(id, queue, journal)
		}(i)
	}
	log.Info().Int("workers", n).Msg("journal workers started")
	return &wg
}

func journalLoop(id int, queue <-chan domain.Adjustment, journal port.JournalRepository) {
	for adj := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)

		if err := journal.RecordAdjustment(ctx, adj); err != nil {
			log.Error().
				Int("worker", id).
				Str("adjustment", adj.ID).
				Err(err).
				Msg("failed to journal adjustment")
		} else {
			log.Debug().
				Int("worker", id).
				Str("adjustment", adj.ID).
				Str("type", adj.Type.String()).
				Msg("adjustment journaled")
		}

		cancel()
	}
}
