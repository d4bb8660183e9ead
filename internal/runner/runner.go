// Package runner executes complete harvest runs: crawl, export, persist,
// notify.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/extwatch/storecrawl/internal/database"
	"github.com/extwatch/storecrawl/internal/export"
	"github.com/extwatch/storecrawl/internal/progress"
	"github.com/extwatch/storecrawl/internal/webstore"
)

// Crawler runs one crawl for a category and returns the accumulated result.
type Crawler interface {
	Run(ctx context.Context, query string) (webstore.Result, error)
}

// CrawlerFactory builds a Crawler bound to the given run ID so page-level
// progress events carry it.
type CrawlerFactory func(runID uuid.UUID) Crawler

// Exporter persists the run's extensions and returns the artifact URI.
type Exporter interface {
	Export(ctx context.Context, path string, format export.Format, extensions []webstore.Extension) (string, error)
}

// Recorder writes extensions and run audit rows to durable storage.
type Recorder interface {
	SaveExtensions(ctx context.Context, runID string, extensions []webstore.Extension) (int, error)
	RecordRun(ctx context.Context, rec database.RunRecord) error
}

// Publisher sends run-completion notifications.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Config carries the static run parameters.
type Config struct {
	// ExportDir prefixes artifact paths; empty means no prefix.
	ExportDir string
	// BaseName leads each artifact filename (default "extensions").
	BaseName string
	// Format selects the artifact encoding.
	Format export.Format
	// Topic names the notification topic; ignored when no publisher is set.
	Topic string
}

// Summary describes one finished run.
type Summary struct {
	RunID      string         `json:"run_id"`
	Category   string         `json:"category"`
	Pages      int            `json:"pages"`
	Extensions int            `json:"extensions"`
	State      webstore.State `json:"state"`
	ExportURI  string         `json:"export_uri,omitempty"`
	MessageID  string         `json:"-"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration"`
}

// Runner owns the collaborators for harvest runs. Recorder and Publisher are
// optional; a nil value disables that step.
type Runner struct {
	crawlers  CrawlerFactory
	exporter  Exporter
	recorder  Recorder
	publisher Publisher
	ids       IDGenerator
	clock     Clock
	emitter   progress.Emitter
	logger    *zap.Logger
	cfg       Config
}

// New wires a Runner. crawlers, exporter, ids, and clock are required.
func New(
	crawlers CrawlerFactory,
	exporter Exporter,
	recorder Recorder,
	publisher Publisher,
	ids IDGenerator,
	clock Clock,
	emitter progress.Emitter,
	logger *zap.Logger,
	cfg Config,
) (*Runner, error) {
	if crawlers == nil {
		return nil, fmt.Errorf("crawler factory is required")
	}
	if exporter == nil {
		return nil, fmt.Errorf("exporter is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseName == "" {
		cfg.BaseName = "extensions"
	}
	if cfg.Format == "" {
		cfg.Format = export.FormatCSV
	}
	return &Runner{
		crawlers:  crawlers,
		exporter:  exporter,
		recorder:  recorder,
		publisher: publisher,
		ids:       ids,
		clock:     clock,
		emitter:   emitter,
		logger:    logger,
		cfg:       cfg,
	}, nil
}

// RunOnce executes one harvest run for the category. Partial crawl results
// are exported and recorded like complete ones; only total transport failure
// before the first page aborts the run without artifacts.
func (r *Runner) RunOnce(ctx context.Context, category string) (Summary, error) {
	rawID, err := r.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	runID, err := uuid.Parse(rawID)
	if err != nil {
		return Summary{}, fmt.Errorf("parse run id: %w", err)
	}

	started := r.clock.Now()
	summary := Summary{RunID: rawID, Category: category, StartedAt: started}
	r.emit(progress.Event{
		RunID:    progress.UUIDToBytes(runID),
		TS:       started,
		Stage:    progress.StageRunStart,
		Category: category,
	})
	r.logger.Info("harvest run started",
		zap.String("run_id", rawID), zap.String("category", category))

	result, err := r.crawlers(runID).Run(ctx, category)
	summary.Pages = result.Pages
	summary.Extensions = len(result.Extensions)
	summary.State = result.State
	summary.Duration = r.clock.Now().Sub(started)
	if err != nil {
		r.emitRunEnd(runID, summary, progress.StageRunError, err.Error())
		r.logger.Error("harvest run failed", zap.String("run_id", rawID), zap.Error(err))
		return summary, fmt.Errorf("crawl %q: %w", category, err)
	}

	uri, err := r.exporter.Export(ctx, r.exportPath(category, rawID), r.cfg.Format, result.Extensions)
	if err != nil {
		summary.Duration = r.clock.Now().Sub(started)
		r.emitRunEnd(runID, summary, progress.StageRunError, err.Error())
		return summary, fmt.Errorf("export run %s: %w", rawID, err)
	}
	summary.ExportURI = uri

	if r.recorder != nil {
		if err := r.record(ctx, rawID, started, summary, result); err != nil {
			summary.Duration = r.clock.Now().Sub(started)
			r.emitRunEnd(runID, summary, progress.StageRunError, err.Error())
			return summary, err
		}
	}

	// Notification is best-effort: a publish failure does not fail a run
	// whose artifacts are already durable.
	if r.publisher != nil {
		msgID, err := r.publisher.Publish(ctx, r.cfg.Topic, summary)
		if err != nil {
			r.logger.Warn("run notification failed",
				zap.String("run_id", rawID), zap.Error(err))
		} else {
			summary.MessageID = msgID
		}
	}

	summary.Duration = r.clock.Now().Sub(started)
	r.emitRunEnd(runID, summary, progress.StageRunDone, "")
	r.logger.Info("harvest run finished",
		zap.String("run_id", rawID),
		zap.String("state", string(summary.State)),
		zap.Int("pages", summary.Pages),
		zap.Int("extensions", summary.Extensions),
		zap.String("export_uri", summary.ExportURI),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// RunAll crawls each category in order, continuing past per-category
// failures. The returned summaries cover every attempted category.
func (r *Runner) RunAll(ctx context.Context, categories []string) ([]Summary, error) {
	summaries := make([]Summary, 0, len(categories))
	var firstErr error
	for _, category := range categories {
		if ctx.Err() != nil {
			return summaries, ctx.Err()
		}
		summary, err := r.RunOnce(ctx, category)
		summaries = append(summaries, summary)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return summaries, firstErr
}

func (r *Runner) record(
	ctx context.Context,
	rawID string,
	started time.Time,
	summary Summary,
	result webstore.Result,
) error {
	if _, err := r.recorder.SaveExtensions(ctx, rawID, result.Extensions); err != nil {
		return fmt.Errorf("save extensions for run %s: %w", rawID, err)
	}
	rec := database.RunRecord{
		ID:         rawID,
		Category:   summary.Category,
		Pages:      summary.Pages,
		Extensions: summary.Extensions,
		State:      summary.State,
		StartedAt:  started,
		FinishedAt: r.clock.Now(),
		ExportURI:  summary.ExportURI,
	}
	if err := r.recorder.RecordRun(ctx, rec); err != nil {
		return fmt.Errorf("record run %s: %w", rawID, err)
	}
	return nil
}

func (r *Runner) exportPath(category, runID string) string {
	safe := strings.ReplaceAll(category, "/", "-")
	name := fmt.Sprintf("%s-%s-%s.%s", r.cfg.BaseName, safe, runID, r.cfg.Format.Extension())
	if r.cfg.ExportDir == "" {
		return name
	}
	return r.cfg.ExportDir + "/" + name
}

func (r *Runner) emit(evt progress.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(evt)
}

func (r *Runner) emitRunEnd(runID uuid.UUID, summary Summary, stage progress.Stage, note string) {
	r.emit(progress.Event{
		RunID:    progress.UUIDToBytes(runID),
		TS:       r.clock.Now(),
		Stage:    stage,
		Category: summary.Category,
		Rows:     int64(summary.Extensions),
		Dur:      summary.Duration,
		Note:     note,
	})
}
