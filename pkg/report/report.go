// Package report collects the outcome of an import run.
package report

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/productimport/pkg/audit"
	"github.com/ruslano69/productimport/pkg/core/product"
)

// Logger receives the events of a run. ProductImported is called exactly
// once for every product that reached storage, failed or not.
type Logger interface {
	Info(msg string)
	Error(msg string)
	ProductImported(p *product.Product)

	OkCount() int
	FailedCount() int
	HasFatal() bool
}

// ProductObserver is notified of every product outcome
type ProductObserver interface {
	ProductImported(p *product.Product)
}

// Summary is the end of run report
type Summary struct {
	RunID       string        `json:"run_id"`
	Source      string        `json:"source,omitempty"`
	InputDigest string        `json:"input_digest,omitempty"`
	DryRun      bool          `json:"dry_run"`
	OK          int           `json:"ok"`
	Failed      int           `json:"failed"`
	Fatal       bool          `json:"fatal"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// Status returns "success", "partial" (some products failed) or "failed"
func (s Summary) Status() string {
	switch {
	case s.Fatal:
		return "failed"
	case s.Failed > 0:
		return "partial"
	default:
		return "success"
	}
}

// Reporter is the Logger of a run. It writes through zerolog, emits an
// audit entry per product and forwards outcomes to observers.
type Reporter struct {
	log       zerolog.Logger
	audit     *audit.Logger
	observers []ProductObserver
	now       func() time.Time

	ok       int
	failed   int
	fatal    bool
	fatalMsg string
	started  time.Time
}

var _ Logger = (*Reporter)(nil)

// Option configures a Reporter
type Option func(*Reporter)

// WithAudit sends an audit entry per product and one per run
func WithAudit(l *audit.Logger) Option {
	return func(r *Reporter) { r.audit = l }
}

// WithObserver adds a product observer
func WithObserver(o ProductObserver) Option {
	return func(r *Reporter) { r.observers = append(r.observers, o) }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// NewReporter creates a reporter; the run starts now
func NewReporter(log zerolog.Logger, opts ...Option) *Reporter {
	r := &Reporter{log: log, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.started = r.now()
	return r
}

// Info logs a progress message
func (r *Reporter) Info(msg string) {
	r.log.Info().Msg(msg)
}

// Error records a fatal error. Only the first message is kept for the summary.
func (r *Reporter) Error(msg string) {
	if !r.fatal {
		r.fatalMsg = msg
	}
	r.fatal = true
	r.log.Error().Msg(msg)
}

// ProductImported counts the outcome of p, writes its audit entry and
// notifies the observers
func (r *Reporter) ProductImported(p *product.Product) {
	if p.Status() == product.StatusOk {
		r.ok++
		r.log.Debug().
			Str("sku", p.SKU()).
			Str("type", p.Kind.String()).
			Int("line", p.Line).
			Msg("product imported")
	} else {
		r.failed++
		r.log.Warn().
			Str("sku", p.SKU()).
			Str("type", p.Kind.String()).
			Int("line", p.Line).
			Strs("errors", p.Errors()).
			Msg("product failed")
	}

	if r.audit != nil {
		r.audit.Log(context.Background(), audit.ProductEntry(p))
	}
	for _, o := range r.observers {
		o.ProductImported(p)
	}
}

// OkCount returns the number of imported products
func (r *Reporter) OkCount() int { return r.ok }

// FailedCount returns the number of products that failed
func (r *Reporter) FailedCount() int { return r.failed }

// HasFatal reports whether Error was called
func (r *Reporter) HasFatal() bool { return r.fatal }

// Finish logs the totals and returns the summary. It is called once at the
// end of every run, fatal or not.
func (r *Reporter) Finish() Summary {
	finished := r.now()
	s := Summary{
		OK:         r.ok,
		Failed:     r.failed,
		Fatal:      r.fatal,
		Error:      r.fatalMsg,
		StartedAt:  r.started,
		FinishedAt: finished,
		Duration:   finished.Sub(r.started),
	}
	if r.audit != nil {
		s.RunID = r.audit.RunID()
	}

	ev := r.log.Info()
	if r.fatal {
		ev = r.log.Error()
	}
	ev.Int("ok", s.OK).
		Int("failed", s.Failed).
		Bool("fatal", s.Fatal).
		Dur("duration", s.Duration).
		Msg("import finished")

	if r.audit != nil {
		e := audit.NewEntry(audit.OpRun, audit.StatusSuccess).
			WithMessage(s.Status()).
			WithMetadata("ok", s.OK).
			WithMetadata("failed", s.Failed)
		if s.Fatal {
			e.Status = audit.StatusFailure
			e.Errors = []string{s.Error}
		}
		r.audit.Log(context.Background(), e)
	}

	return s
}
