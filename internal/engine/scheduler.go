package engine

import (
	"sync"
	"time"

	"github.com/rizkyandriawan/monowire/internal/config"
	"github.com/rizkyandriawan/monowire/internal/store"
	"github.com/rs/zerolog"
)

// RetentionScheduler removes old journal entries on a timer
type RetentionScheduler struct {
	journal  store.Journal
	config   config.RetentionConfig
	logger   zerolog.Logger
	now      func() time.Time
	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRetentionScheduler creates a new RetentionScheduler
func NewRetentionScheduler(journal store.Journal, cfg config.RetentionConfig, logger zerolog.Logger) *RetentionScheduler {
	return &RetentionScheduler{
		journal:  journal,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *RetentionScheduler) Start() {
	if !s.config.Enabled || s.config.CheckInterval <= 0 {
		return
	}
	s.ticker = time.NewTicker(s.config.CheckInterval.Std())
	s.wg.Add(1)
	go s.loop()
}

// Stop stops the scheduler and waits for a running cleanup to finish.
func (s *RetentionScheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *RetentionScheduler) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

// cleanup deletes entries older than max_age and returns how many went.
func (s *RetentionScheduler) cleanup() int {
	cutoff := s.now().Add(-s.config.MaxAge.Std())

	deleted, err := s.journal.DeleteBefore(cutoff)
	if err != nil {
		s.logger.Error().Err(err).Time("cutoff", cutoff).Msg("retention cleanup failed")
		return 0
	}
	if deleted == 0 {
		return 0
	}
	s.logger.Info().Int("deleted", deleted).Time("cutoff", cutoff).Msg("expired journal entries")

	if gc, ok := s.journal.(interface{ RunGC() error }); ok {
		if err := gc.RunGC(); err != nil {
			s.logger.Warn().Err(err).Msg("value log gc failed")
		}
	}
	return deleted
}
