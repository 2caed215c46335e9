package backup

// scheduler.go
// Periodic automatic backup:
//   - every N minutes, if the ledger changed since the last snapshot
//   - one final snapshot at shutdown when changes are still pending
// Mutating callers signal changes through MarkDirty; a tick with a clean
// flag is a no-op so an idle application never floods the backup directory.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type Scheduler struct {
	manager  *Manager
	interval time.Duration

	cron *cron.Cron

	mu    sync.Mutex
	dirty bool
}

func NewScheduler(manager *Manager, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{manager: manager, interval: interval}
}

// Start launches the cron loop. Returns an error only for an invalid spec,
// which cannot happen with a duration-based entry.
func (s *Scheduler) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.tick); err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Dur("interval", s.interval).Msg("backup scheduler started")
	return nil
}

// Stop halts the cron loop, waits for an in-flight tick, and flushes one
// last snapshot if changes are still pending.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.mu.Lock()
	pending := s.dirty
	s.mu.Unlock()
	if pending {
		if _, err := s.manager.Create(ctx); err != nil {
			log.Error().Err(err).Msg("final backup on shutdown failed")
			return
		}
		s.setDirty(false)
	}
	log.Info().Msg("backup scheduler stopped")
}

// MarkDirty records that the ledger changed since the last snapshot.
func (s *Scheduler) MarkDirty() { s.setDirty(true) }

func (s *Scheduler) setDirty(v bool) {
	s.mu.Lock()
	s.dirty = v
	s.mu.Unlock()
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	pending := s.dirty
	s.mu.Unlock()
	if !pending {
		return
	}
	if _, err := s.manager.Create(context.Background()); err != nil {
		// Keep the dirty flag: the next tick retries once the user fixes
		// the backup directory.
		log.Error().Err(err).Msg("scheduled backup failed")
		return
	}
	s.setDirty(false)
}
