package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ruslano69/productimport/pkg/adapters"
	_ "github.com/ruslano69/productimport/pkg/adapters/mysql"
	_ "github.com/ruslano69/productimport/pkg/adapters/postgres"
	_ "github.com/ruslano69/productimport/pkg/adapters/sqlite"
	"github.com/ruslano69/productimport/pkg/audit"
	"github.com/ruslano69/productimport/pkg/importer"
	"github.com/ruslano69/productimport/pkg/metrics"
	"github.com/ruslano69/productimport/pkg/report"
	"github.com/ruslano69/productimport/pkg/resultlog"
	"github.com/ruslano69/productimport/pkg/retry"
	"github.com/ruslano69/productimport/pkg/source"
	"github.com/ruslano69/productimport/pkg/storage"
)

// ErrImportFailed is returned when a run ended with a fatal error
var ErrImportFailed = errors.New("import failed")

const publishTimeout = 10 * time.Second

// importRun is one execution of the import command
type importRun struct {
	cfg    *Config
	log    zerolog.Logger
	stderr io.Writer
	opener *source.Opener
	runID  string
}

func newImportRun(cfg *Config, log zerolog.Logger, stderr io.Writer) *importRun {
	return &importRun{
		cfg:    cfg,
		log:    log,
		stderr: stderr,
		opener: source.NewOpener(cfg.Source),
		runID:  uuid.NewString(),
	}
}

// Execute imports location and returns the summary. The summary is
// published even when the run failed.
func (r *importRun) Execute(ctx context.Context, location string) (report.Summary, error) {
	log := r.log.With().Str("run_id", r.runID).Logger()

	auditLogger, err := r.auditLogger(log)
	if err != nil {
		return report.Summary{}, err
	}
	defer auditLogger.Close()

	var collector *metrics.Collector
	opts := []report.Option{report.WithAudit(auditLogger)}
	if r.cfg.Metrics.Enabled {
		collector = metrics.New()
		opts = append(opts, report.WithObserver(collector))
	}
	reporter := report.NewReporter(log, opts...)

	src, runErr := r.run(ctx, location, reporter, collector)
	if runErr != nil && !reporter.HasFatal() {
		reporter.Error(runErr.Error())
	}

	summary := reporter.Finish()
	summary.RunID = r.runID
	summary.Source = location
	summary.DryRun = r.cfg.Import.DryRun
	if src != nil {
		summary.InputDigest = src.Digest()
	}

	r.publish(ctx, log, summary, collector)

	if summary.Fatal {
		return summary, fmt.Errorf("%w: %s", ErrImportFailed, summary.Error)
	}
	return summary, nil
}

func (r *importRun) run(ctx context.Context, location string, reporter *report.Reporter, collector *metrics.Collector) (*source.Source, error) {
	adapter, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer adapter.Close(ctx)

	version, err := adapter.GetDatabaseVersion(ctx)
	if err == nil {
		r.log.Debug().Str("type", adapter.GetDatabaseType()).Str("version", version).Msg("connected")
	}

	src, err := r.opener.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	sc, err := r.cfg.StorageConfig()
	if err != nil {
		return src, err
	}
	st, err := storage.New(ctx, adapter.DB(), adapter.Dialect(), sc, reporter)
	if err != nil {
		return src, err
	}
	meta := st.Metadata()
	r.log.Debug().
		Int("store_views", len(meta.StoreIDs)).
		Int("websites", len(meta.WebsiteIDs)).
		Int("attributes", len(meta.Attributes)).
		Msg("catalog metadata loaded")

	var impOpts []importer.Option
	if collector != nil {
		impOpts = append(impOpts, importer.WithFlushObserver(collector))
	}
	imp, err := importer.NewImporter(st, importer.Config{BatchSize: r.cfg.Import.BatchSize}, impOpts...)
	if err != nil {
		return src, err
	}

	reporter.Info(fmt.Sprintf("importing %s (%s)", location, src.Compression()))
	if err := importer.Run(ctx, src, imp, reporter); err != nil {
		return src, err
	}

	r.log.Info().
		Int("categories_created", st.CategoriesCreated()).
		Int("options_created", st.OptionsCreated()).
		Int("flushes", imp.Stats().Flushes).
		Msg("storage done")
	return src, nil
}

// connect opens the store, retrying per the retry section
func (r *importRun) connect(ctx context.Context) (adapters.Adapter, error) {
	rc := r.cfg.Retry
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		r.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("database connect failed, retrying")
	}
	retryer, err := retry.NewRetryer(rc)
	if err != nil {
		return nil, err
	}

	cfg := adapters.Config{
		Type:    r.cfg.Database.Type,
		DSN:     r.cfg.Database.BuildDSN(),
		Timeout: time.Duration(r.cfg.Database.ConnectTimeout) * time.Second,
	}

	var adapter adapters.Adapter
	err = retryer.Do(ctx, func(ctx context.Context) error {
		a, err := adapters.New(ctx, cfg)
		if err != nil {
			return err
		}
		adapter = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

func (r *importRun) auditLogger(log zerolog.Logger) (*audit.Logger, error) {
	l := audit.NewLogger(audit.LoggerConfig{
		RunID: r.runID,
		OnError: func(err error) {
			log.Warn().Err(err).Msg("audit write failed")
		},
	})

	ac := r.cfg.Audit
	if !ac.Enabled {
		l.AddAppender(audit.NewNullAppender())
		return l, nil
	}

	level, err := audit.ParseLevel(ac.Level)
	if err != nil {
		return nil, err
	}

	wrap := func(a audit.Appender) audit.Appender {
		if ac.FailuresOnly {
			return audit.NewFailuresAppender(a)
		}
		return a
	}

	if ac.File != "" {
		fa, err := audit.NewFileAppender(audit.FileAppenderConfig{
			FilePath:   ac.File,
			MaxSize:    int64(ac.MaxSize),
			MaxBackups: ac.MaxBackups,
			Level:      level,
			FormatJSON: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		l.AddAppender(wrap(fa))
	}
	if ac.Console {
		l.AddAppender(wrap(audit.NewWriterAppender(r.stderr, level, false)))
	}
	return l, nil
}

// publish hands the summary to metrics and the result log. Failures are
// logged; they never change the outcome of the run.
func (r *importRun) publish(ctx context.Context, log zerolog.Logger, summary report.Summary, collector *metrics.Collector) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if collector != nil {
		collector.Finish(summary)
		if err := collector.Push(ctx, r.cfg.Metrics.PushgatewayURL, r.cfg.Metrics.Job); err != nil {
			log.Warn().Err(err).Msg("metrics push failed")
		}
	}

	if r.cfg.ResultLog.Enabled {
		pub := resultlog.NewRedisPublisher(r.cfg.ResultLog)
		defer pub.Close()
		if err := pub.Publish(ctx, summary); err != nil {
			log.Warn().Err(err).Msg("result publish failed")
		}
	}
}
