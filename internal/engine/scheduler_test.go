package engine

import (
	"testing"
	"time"

	"github.com/rizkyandriawan/monowire/internal/config"
	"github.com/rizkyandriawan/monowire/internal/store"
	"github.com/rizkyandriawan/monowire/internal/testutil/testlog"
)

func TestRetentionCleanup(t *testing.T) {
	journal := store.NewMemoryJournal(8)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{3 * time.Hour, 90 * time.Minute, 10 * time.Minute, 0} {
		if err := journal.Append(store.Entry{Time: now.Add(-age)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	cfg := config.RetentionConfig{Enabled: true, MaxAge: config.Duration(time.Hour), CheckInterval: config.Duration(time.Minute)}
	s := NewRetentionScheduler(journal, cfg, testlog.Logger(t))
	s.now = func() time.Time { return now }

	if deleted := s.cleanup(); deleted != 2 {
		t.Fatalf("deleted %d, want 2", deleted)
	}
	if n, _ := journal.Len(); n != 2 {
		t.Fatalf("journal holds %d entries, want 2", n)
	}
	if deleted := s.cleanup(); deleted != 0 {
		t.Fatalf("second cleanup deleted %d", deleted)
	}
}

func TestRetentionSchedulerRuns(t *testing.T) {
	journal := store.NewMemoryJournal(8)
	if err := journal.Append(store.Entry{Time: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	cfg := config.RetentionConfig{Enabled: true, MaxAge: config.Duration(time.Minute), CheckInterval: config.Duration(10 * time.Millisecond)}
	s := NewRetentionScheduler(journal, cfg, testlog.Logger(t))
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := journal.Len(); n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("retention scheduler did not expire the old entry")
}

func TestRetentionSchedulerStopIdempotent(t *testing.T) {
	s := NewRetentionScheduler(store.NewMemoryJournal(1), config.RetentionConfig{}, testlog.Logger(t))
	s.Start()
	s.Stop()
	s.Stop()
}
