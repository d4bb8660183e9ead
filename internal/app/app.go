// Package app composes the harvest service from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	gcsclient "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/extwatch/storecrawl/internal/clock/system"
	"github.com/extwatch/storecrawl/internal/config"
	"github.com/extwatch/storecrawl/internal/database"
	"github.com/extwatch/storecrawl/internal/export"
	iduuid "github.com/extwatch/storecrawl/internal/id/uuid"
	"github.com/extwatch/storecrawl/internal/progress"
	"github.com/extwatch/storecrawl/internal/progress/sinks"
	pubsubpub "github.com/extwatch/storecrawl/internal/publisher/pubsub"
	"github.com/extwatch/storecrawl/internal/runner"
	"github.com/extwatch/storecrawl/internal/storage"
	"github.com/extwatch/storecrawl/internal/storage/gcs"
	"github.com/extwatch/storecrawl/internal/storage/local"
	"github.com/extwatch/storecrawl/internal/storage/memory"
	"github.com/extwatch/storecrawl/internal/webstore"
)

// App owns the wired collaborators for the harvest service and their
// lifecycles.
type App struct {
	Cfg      config.Config
	Logger   *zap.Logger
	Runner   *runner.Runner
	Hub      *progress.Hub
	Exporter *export.Exporter

	// ExportDir prefixes artifact object names; empty when the blob store
	// is already rooted at the output directory.
	ExportDir string

	client    *webstore.Client
	dbStore   *database.Store
	gcsClient *gcsclient.Client
	psClient  *pubsubv2.Client
}

// New builds the full service graph from config. Optional subsystems
// (Postgres, Pub/Sub) are only connected when enabled.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Cfg: cfg, Logger: logger}

	var gcsCli *gcsclient.Client
	if cfg.Storage.Provider == "gcs" {
		cli, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		gcsCli = cli
		a.gcsClient = cli
	}

	debugStore, err := newBlobStore(cfg.Storage.Provider, cfg.Storage.BaseDir, cfg.Storage.GCSBucket, gcsCli)
	if err != nil {
		a.closePartial()
		return nil, fmt.Errorf("init debug store: %w", err)
	}
	exportStore, err := newBlobStore(cfg.Storage.Provider, cfg.Output.Dir, cfg.Storage.GCSBucket, gcsCli)
	if err != nil {
		a.closePartial()
		return nil, fmt.Errorf("init export store: %w", err)
	}

	delayMin, delayMax := cfg.DelayRange()
	client, err := webstore.NewClient(webstore.ClientConfig{
		Endpoint:   cfg.Webstore.Endpoint,
		UserAgent:  cfg.HTTP.UserAgent,
		Timeout:    cfg.RequestTimeout(),
		MaxRetries: cfg.HTTP.MaxRetries,
		DelayMin:   delayMin,
		DelayMax:   delayMax,
	}, logger)
	if err != nil {
		a.closePartial()
		return nil, fmt.Errorf("init webstore client: %w", err)
	}
	a.client = client

	tracker := webstore.NewTokenTracker(debugStore, cfg.Storage.Prefix, logger)

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		a.closePartial()
		return nil, fmt.Errorf("init progress metrics: %w", err)
	}
	a.Hub = progress.NewHub(progress.Config{Logger: logger},
		sinks.NewLogSink(logger), promSink)

	var recorder runner.Recorder
	if cfg.DB.Enabled {
		store, err := database.NewStore(ctx, database.Config{
			DSN:             cfg.DB.DSN,
			Table:           cfg.DB.Table,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: time.Duration(cfg.DB.LifetimeMins) * time.Minute,
		})
		if err != nil {
			a.closePartial()
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.dbStore = store
		recorder = store
	}

	var publisher runner.Publisher
	if cfg.PubSub.Enabled {
		psClient, err := pubsubv2.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			a.closePartial()
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		a.psClient = psClient
		publisher = pubsubpub.New(psClient.Publisher(cfg.PubSub.TopicName))
	}

	format, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		a.closePartial()
		return nil, err
	}

	// The local provider roots the export store at output.dir already; the
	// shared-bucket providers need the directory as an object prefix.
	exportDir := ""
	if cfg.Storage.Provider != "local" {
		exportDir = cfg.Output.Dir
	}
	a.ExportDir = exportDir
	a.Exporter = export.NewExporter(exportStore, logger)

	harvestCfg := webstore.HarvesterConfig{
		PageSize: cfg.Webstore.PageSize,
		MaxPages: cfg.Webstore.MaxPages,
	}
	factory := func(runID uuid.UUID) runner.Crawler {
		return webstore.NewHarvester(client, tracker, harvestCfg, logger,
			webstore.WithEmitter(a.Hub, runID))
	}

	r, err := runner.New(
		factory,
		a.Exporter,
		recorder,
		publisher,
		iduuid.New(),
		system.New(),
		a.Hub,
		logger,
		runner.Config{
			ExportDir: exportDir,
			BaseName:  cfg.Output.Filename,
			Format:    format,
			Topic:     cfg.PubSub.TopicName,
		},
	)
	if err != nil {
		a.closePartial()
		return nil, fmt.Errorf("init runner: %w", err)
	}
	a.Runner = r
	return a, nil
}

// Close flushes progress events and releases all connections.
func (a *App) Close(ctx context.Context) {
	if a.Hub != nil {
		if err := a.Hub.Close(ctx); err != nil {
			a.Logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	a.closePartial()
}

func (a *App) closePartial() {
	if a.client != nil {
		a.client.Close()
	}
	if a.dbStore != nil {
		a.dbStore.Close()
	}
	if a.psClient != nil {
		if err := a.psClient.Close(); err != nil && a.Logger != nil {
			a.Logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil && a.Logger != nil {
			a.Logger.Warn("gcs close failed", zap.Error(err))
		}
	}
}

func newBlobStore(provider, baseDir, bucket string, gcsCli *gcsclient.Client) (storage.BlobStore, error) {
	switch provider {
	case "local":
		return local.New(local.Config{BaseDir: baseDir})
	case "memory":
		return memory.NewBlobStore(), nil
	case "gcs":
		return gcs.New(gcsCli, gcs.Config{Bucket: bucket})
	default:
		return nil, fmt.Errorf("unknown storage provider %q", provider)
	}
}
