package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/firms-ingest/internal/domain"
	"github.com/couchcryptid/firms-ingest/internal/observability"
)

// DefaultInterval is the pause between poll cycles.
const DefaultInterval = 5 * time.Minute

// Fetcher retrieves the full snapshot a source holds for a day.
type Fetcher interface {
	Fetch(ctx context.Context, src domain.Source, day time.Time) (domain.Snapshot, error)
}

// RecordStore loads and replaces the persisted record of a source.
// Load returns a nil record when the source has no prior state.
type RecordStore interface {
	Load(src domain.Source) (*domain.Record, error)
	Save(src domain.Source, rec *domain.Record) error
}

// Publisher forwards newly discovered detections downstream.
type Publisher interface {
	Publish(ctx context.Context, src domain.Source, columns []string, rows []domain.Row) error
}

// Options configures a Poller. Zero values fall back to defaults.
type Options struct {
	Sources  []domain.Source
	Interval time.Duration
	Clock    clockwork.Clock
}

// SourceStatus is a point-in-time view of one source for the status endpoint.
type SourceStatus struct {
	Source      domain.Source `json:"source"`
	Rows        int           `json:"rows"`
	NewRows     int           `json:"new_rows_last_poll"`
	LastPoll    time.Time     `json:"last_poll,omitzero"`
	LastSuccess time.Time     `json:"last_success,omitzero"`
	LastError   string        `json:"last_error,omitempty"`
}

// Poller runs the fetch-merge-persist loop over a fixed list of sources.
// Sources are polled one after another; each record is owned by the loop
// goroutine and never shared.
type Poller struct {
	fetcher   Fetcher
	store     RecordStore
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	sources   []domain.Source
	interval  time.Duration

	records map[domain.Source]*domain.Record
	ready   atomic.Bool

	mu     sync.RWMutex
	status map[domain.Source]SourceStatus
}

// New creates a Poller. publisher may be nil.
func New(f Fetcher, s RecordStore, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Poller {
	if len(opts.Sources) == 0 {
		opts.Sources = domain.DefaultSources
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	status := make(map[domain.Source]SourceStatus, len(opts.Sources))
	for _, src := range opts.Sources {
		status[src] = SourceStatus{Source: src}
	}

	return &Poller{
		fetcher:   f,
		store:     s,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		clock:     opts.Clock,
		sources:   opts.Sources,
		interval:  opts.Interval,
		records:   make(map[domain.Source]*domain.Record, len(opts.Sources)),
		status:    status,
	}
}

// CheckReadiness returns nil once the poller has completed a cycle,
// or an error describing why the service is not yet ready.
func (p *Poller) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("poller has not completed a cycle yet")
	}
	return nil
}

// Status returns the current state of every source in polling order.
func (p *Poller) Status() []SourceStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]SourceStatus, 0, len(p.sources))
	for _, src := range p.sources {
		out = append(out, p.status[src])
	}
	return out
}

// Record returns the in-memory record of a source, nil if it has none yet.
// It must not be called while Run is active.
func (p *Poller) Record(src domain.Source) *domain.Record {
	return p.records[src]
}

// Restore loads the persisted record of every source. A source without a
// persisted record starts absent.
func (p *Poller) Restore() error {
	for _, src := range p.sources {
		rec, err := p.store.Load(src)
		if err != nil {
			return fmt.Errorf("restore %s: %w", src, err)
		}
		p.records[src] = rec
		if rec == nil {
			p.logger.Info("no prior record", "source", src)
		}
		p.updateStatus(src, func(st *SourceStatus) { st.Rows = rec.Len() })
		p.metrics.RecordRows.WithLabelValues(src.String()).Set(float64(rec.Len()))
	}
	return nil
}

// Run restores persisted state and then polls until the context is cancelled.
// It returns an error only when state cannot be loaded or saved.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Restore(); err != nil {
		return err
	}

	p.logger.Info("poller started", "sources", p.sources, "interval", p.interval)
	p.metrics.LoopRunning.Set(1)
	defer p.metrics.LoopRunning.Set(0)

	for {
		if err := p.RunCycle(ctx); err != nil {
			return err
		}
		if !sleepWithContext(ctx, p.clock, p.interval) {
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunCycle polls every source in order, persists every record that exists,
// then publishes the rows discovered this cycle. If the context is cancelled
// mid-cycle, the sources already polled are still persisted.
func (p *Poller) RunCycle(ctx context.Context) error {
	start := p.clock.Now()
	discovered := make(map[domain.Source][]domain.Row, len(p.sources))

	for _, src := range p.sources {
		if ctx.Err() != nil {
			break
		}
		next, added := p.PollSource(ctx, src, p.records[src])
		p.records[src] = next
		discovered[src] = added
	}

	if err := p.persist(); err != nil {
		return err
	}
	p.publish(ctx, discovered)

	p.metrics.CycleDuration.Observe(p.clock.Since(start).Seconds())
	if ctx.Err() == nil {
		p.ready.Store(true)
	}
	return nil
}

// PollSource fetches today's snapshot for a source and merges it into old.
// Failures are logged and leave old untouched; they never reach the caller.
func (p *Poller) PollSource(ctx context.Context, src domain.Source, old *domain.Record) (*domain.Record, []domain.Row) {
	now := p.clock.Now()
	label := src.String()

	snap, err := p.fetcher.Fetch(ctx, src, now)
	if err != nil {
		p.logger.Error("download failed", "source", src, "error", err)
		p.metrics.Polls.WithLabelValues(label, "fetch_error").Inc()
		p.recordFailure(src, now, err)
		return old, nil
	}
	p.logger.Info("rows downloaded", "source", src, "rows", snap.Len())
	p.metrics.RowsFetched.WithLabelValues(label).Set(float64(snap.Len()))

	// Rows become visible when the download completes, not when it was requested.
	downloaded := p.clock.Now()
	next, added, err := domain.Merge(old, snap, downloaded.UTC().Truncate(time.Second))
	if err != nil {
		p.logger.Error("merge failed", "source", src, "error", err)
		p.metrics.Polls.WithLabelValues(label, "merge_error").Inc()
		p.recordFailure(src, downloaded, err)
		return old, nil
	}

	p.metrics.Polls.WithLabelValues(label, "success").Inc()
	p.metrics.NewRows.WithLabelValues(label).Add(float64(len(added)))
	p.metrics.RecordRows.WithLabelValues(label).Set(float64(next.Len()))
	p.metrics.LastSuccess.WithLabelValues(label).Set(float64(downloaded.Unix()))
	p.observeLatency(src, next.Columns(), added)

	if len(added) > 0 {
		p.logger.Info("new detections recorded", "source", src, "new_rows", len(added), "total_rows", next.Len())
	}
	p.updateStatus(src, func(st *SourceStatus) {
		st.Rows = next.Len()
		st.NewRows = len(added)
		st.LastPoll = downloaded
		st.LastSuccess = downloaded
		st.LastError = ""
	})
	return next, added
}

func (p *Poller) persist() error {
	for _, src := range p.sources {
		rec := p.records[src]
		if rec == nil {
			continue
		}
		if err := p.store.Save(src, rec); err != nil {
			p.metrics.PersistErrors.Inc()
			return fmt.Errorf("persist %s: %w", src, err)
		}
	}
	return nil
}

func (p *Poller) publish(ctx context.Context, discovered map[domain.Source][]domain.Row) {
	if p.publisher == nil || ctx.Err() != nil {
		return
	}
	for _, src := range p.sources {
		rows := discovered[src]
		if len(rows) == 0 {
			continue
		}
		if err := p.publisher.Publish(ctx, src, p.records[src].Columns(), rows); err != nil {
			p.logger.Warn("publish failed", "source", src, "rows", len(rows), "error", err)
			p.metrics.PublishErrors.Inc()
		}
	}
}

func (p *Poller) observeLatency(src domain.Source, columns []string, rows []domain.Row) {
	hist := p.metrics.DetectionLatency.WithLabelValues(src.String())
	for _, row := range rows {
		d, err := domain.Latency(columns, row)
		if err != nil {
			p.logger.Debug("latency unavailable", "source", src, "error", err)
			return
		}
		hist.Observe(d.Seconds())
	}
}

func (p *Poller) recordFailure(src domain.Source, at time.Time, err error) {
	p.updateStatus(src, func(st *SourceStatus) {
		st.NewRows = 0
		st.LastPoll = at
		st.LastError = err.Error()
	})
}

func (p *Poller) updateStatus(src domain.Source, fn func(*SourceStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.status[src]
	fn(&st)
	p.status[src] = st
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
