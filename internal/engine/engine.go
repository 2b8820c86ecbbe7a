package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rizkyandriawan/monowire/internal/config"
	"github.com/rizkyandriawan/monowire/internal/observability"
	"github.com/rizkyandriawan/monowire/internal/protocol"
	"github.com/rizkyandriawan/monowire/internal/store"
	"github.com/rs/zerolog"
)

// Engine answers decoded requests and keeps account of what was served.
type Engine struct {
	config         *config.Config
	journal        store.Journal
	metrics        *observability.Metrics
	logger         zerolog.Logger
	registry       *protocol.Registry
	dispatcher     *protocol.Dispatcher
	retentionSched *RetentionScheduler
	startedAt      time.Time

	requests atomic.Uint64
	errors   atomic.Uint64
	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64

	mu    sync.Mutex
	byAPI map[string]uint64
}

// Stats is a snapshot of request accounting since startup.
type Stats struct {
	Requests       uint64            `json:"requests"`
	Errors         uint64            `json:"errors"`
	BytesIn        uint64            `json:"bytes_in"`
	BytesOut       uint64            `json:"bytes_out"`
	ByAPI          map[string]uint64 `json:"by_api"`
	JournalEntries int               `json:"journal_entries"`
	StartedAt      time.Time         `json:"started_at"`
}

// New creates an Engine. metrics may be nil.
func New(cfg *config.Config, journal store.Journal, metrics *observability.Metrics, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		config:    cfg,
		journal:   journal,
		metrics:   metrics,
		logger:    observability.Component(logger, "engine"),
		startedAt: time.Now(),
		byAPI:     make(map[string]uint64),
	}

	registry, err := protocol.NewRegistry(e.apis()...)
	if err != nil {
		return nil, err
	}
	e.registry = registry
	e.dispatcher = protocol.NewDispatcher(registry)
	e.retentionSched = NewRetentionScheduler(journal, cfg.Retention, observability.Component(logger, "retention"))
	return e, nil
}

// Start starts the engine's background tasks
func (e *Engine) Start() {
	if e.config.Retention.Enabled {
		e.retentionSched.Start()
	}
}

// Stop stops the engine
func (e *Engine) Stop() {
	e.retentionSched.Stop()
}

// Dispatch serves one request. It always returns a response for the
// request's correlation id; a non-nil error explains an ErrorResponse.
func (e *Engine) Dispatch(ctx context.Context, header protocol.RequestHeader, d *protocol.Decoder) (protocol.Response, error) {
	return e.dispatcher.Respond(ctx, header, d)
}

// Record accounts for an answered request and appends it to the journal.
func (e *Engine) Record(entry store.Entry) {
	api := e.APILabel(entry.APIKey)

	e.requests.Add(1)
	if entry.ErrorCode != protocol.CodeNone {
		e.errors.Add(1)
	}
	e.mu.Lock()
	e.byAPI[api]++
	e.mu.Unlock()

	e.metrics.RecordRequest(api, entry.ErrorCode, entry.Duration)

	if err := e.journal.Append(entry); err != nil {
		e.logger.Warn().Err(err).Int32("correlation_id", entry.CorrelationID).Msg("journal append failed")
	}
}

// AddTraffic counts frame payload bytes read and written.
func (e *Engine) AddTraffic(in, out int) {
	e.bytesIn.Add(uint64(in))
	e.bytesOut.Add(uint64(out))
}

// APILabel names key for metrics and stats. Unregistered keys share one
// label.
func (e *Engine) APILabel(key int16) string {
	if api, ok := e.registry.Lookup(key); ok {
		return api.Name
	}
	return "unknown"
}

func (e *Engine) Stats() Stats {
	s := Stats{
		Requests:  e.requests.Load(),
		Errors:    e.errors.Load(),
		BytesIn:   e.bytesIn.Load(),
		BytesOut:  e.bytesOut.Load(),
		ByAPI:     make(map[string]uint64),
		StartedAt: e.startedAt,
	}
	e.mu.Lock()
	for k, v := range e.byAPI {
		s.ByAPI[k] = v
	}
	e.mu.Unlock()

	if n, err := e.journal.Len(); err == nil {
		s.JournalEntries = n
	}
	return s
}

// RecentRequests returns up to limit journal entries, newest first.
func (e *Engine) RecentRequests(limit int) ([]store.Entry, error) {
	return e.journal.Recent(limit)
}

// Versions returns the version ranges clients are told about.
func (e *Engine) Versions() []protocol.ApiVersion {
	return e.registry.Versions()
}

func (e *Engine) Registry() *protocol.Registry {
	return e.registry
}
