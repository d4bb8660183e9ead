package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/extwatch/storecrawl/internal/progress"
)

// TestPrometheusSinkRecordsMetrics ensures counters and histograms are incremented from events.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	batch := []progress.Event{
		{RunID: runID, TS: time.Now(), Stage: progress.StageRunStart, Category: "productivity"},
		{
			RunID:    runID,
			TS:       time.Now().Add(2 * time.Second),
			Stage:    progress.StagePageDone,
			Category: "productivity",
			Page:     1,
			Rows:     32,
			Bytes:    4096,
			Dur:      200 * time.Millisecond,
		},
		{RunID: runID, TS: time.Now().Add(5 * time.Second), Stage: progress.StageRunDone, Dur: 5 * time.Second},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("success")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("error")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.runsRunning))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.pagesDone.WithLabelValues("productivity")))
	require.InDelta(t, 32.0, testutil.ToFloat64(sink.pageRows.WithLabelValues("productivity")), 1e-9)
	require.InDelta(t, 4096.0, testutil.ToFloat64(sink.pageBytes.WithLabelValues("productivity")), 1e-9)
	require.Equal(t, 1, testutil.CollectAndCount(sink.runRuntime, "storecrawl_run_runtime_seconds"))
}

// TestPrometheusSinkRunningGauge tracks concurrent runs via start/complete pairs.
func TestPrometheusSinkRunningGauge(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	first := progress.UUIDToBytes(uuid.New())
	second := progress.UUIDToBytes(uuid.New())
	ctx := context.Background()

	require.NoError(t, sink.Consume(ctx, []progress.Event{
		{RunID: first, TS: time.Now(), Stage: progress.StageRunStart},
		{RunID: second, TS: time.Now(), Stage: progress.StageRunStart},
	}))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.runsRunning))

	// Duplicate start for an already-running run must not double count.
	require.NoError(t, sink.Consume(ctx, []progress.Event{
		{RunID: first, TS: time.Now(), Stage: progress.StageRunStart},
	}))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.runsRunning))

	require.NoError(t, sink.Consume(ctx, []progress.Event{
		{RunID: first, TS: time.Now(), Stage: progress.StageRunError, Dur: time.Second},
	}))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsRunning))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("error")))
}

// TestPrometheusSinkUnknownCategory falls back to a stable label value.
func TestPrometheusSinkUnknownCategory(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: progress.UUIDToBytes(uuid.New()), TS: time.Now(), Stage: progress.StagePageDone, Page: 1},
	}))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.pagesDone.WithLabelValues("unknown")))
}
