package webstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/extwatch/storecrawl/internal/progress"
)

// Transport sends one encoded request body and returns the raw response
// text. Delay throttles between completed pages.
type Transport interface {
	Send(ctx context.Context, body string) (string, error)
	Delay(ctx context.Context)
}

// TokenSource discovers the continuation token for the next page from raw
// response text.
type TokenSource interface {
	NextToken(ctx context.Context, text string) (string, bool)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// HarvesterConfig controls one crawl's page loop.
type HarvesterConfig struct {
	PageSize int
	MaxPages int
}

// Harvester drives the sequential page loop: build, send, extract, decode,
// track token, delay, repeat. One page is fully processed before the next
// request is issued; the token for page n+1 is only discoverable after
// parsing page n.
type Harvester struct {
	transport Transport
	tokens    TokenSource
	cfg       HarvesterConfig
	clock     Clock
	emitter   progress.Emitter
	runID     uuid.UUID
	logger    *zap.Logger
}

// HarvesterOption customizes optional collaborators.
type HarvesterOption func(*Harvester)

// WithEmitter attaches a progress emitter; events carry the given run ID.
func WithEmitter(emitter progress.Emitter, runID uuid.UUID) HarvesterOption {
	return func(h *Harvester) {
		h.emitter = emitter
		h.runID = runID
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) HarvesterOption {
	return func(h *Harvester) {
		h.clock = clock
	}
}

// NewHarvester constructs a Harvester.
func NewHarvester(
	transport Transport,
	tokens TokenSource,
	cfg HarvesterConfig,
	logger *zap.Logger,
	opts ...HarvesterOption,
) *Harvester {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 32
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Harvester{
		transport: transport,
		tokens:    tokens,
		cfg:       cfg,
		clock:     systemClock{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes the crawl for one query and returns whatever was validly
// accumulated. The only error-returning outcome is transport failure before
// any page succeeded; every later failure preserves partial results and is
// reflected in Result.State instead.
func (h *Harvester) Run(ctx context.Context, query string) (Result, error) {
	res := Result{State: StateInit}
	pag := PaginationState{Limit: h.cfg.MaxPages}

	for {
		res.State = StateFetchingPage
		pageStart := h.clock.Now()

		body := BuildRequest(query, h.cfg.PageSize, pag.Token)
		text, err := h.transport.Send(ctx, body)
		if err != nil {
			res.State = StateAborted
			if pag.Pages == 0 {
				h.logger.Error("transport failed before first page", zap.Error(err))
				return res, err
			}
			h.logger.Warn("transport failed mid-crawl; keeping partial results",
				zap.Int("pages", pag.Pages), zap.Error(err))
			return res, nil
		}
		pag.Pages++
		res.Pages = pag.Pages

		rows, err := ExtractRows(text)
		if err != nil {
			res.State = StateAborted
			h.logger.Warn("envelope extraction failed; keeping partial results",
				zap.Int("page", pag.Pages), zap.Error(err))
			return res, nil
		}
		TotalPages.Inc()

		decoded := 0
		for _, row := range rows {
			ext, ok := DecodeRow(row)
			if !ok {
				TotalRowsDropped.Inc()
				continue
			}
			TotalRowsDecoded.Inc()
			res.Extensions = append(res.Extensions, ext)
			decoded++
		}
		h.logger.Info("page processed",
			zap.String("query", query),
			zap.Int("page", pag.Pages),
			zap.Int("raw_rows", len(rows)),
			zap.Int("decoded", decoded),
			zap.Int("total", len(res.Extensions)))
		h.emitPage(query, pag.Pages, decoded, len(text), h.clock.Now().Sub(pageStart))

		if len(rows) == 0 {
			res.State = StateDone
			return res, nil
		}

		// The next token comes from the raw response text, never from
		// decoded rows.
		token, ok := h.tokens.NextToken(ctx, text)
		if !ok {
			h.logger.Info("no pagination token; reached last page",
				zap.Int("pages", pag.Pages))
			res.State = StateDone
			return res, nil
		}
		pag.Token = token

		if pag.Pages >= pag.Limit {
			res.State = StateDone
			return res, nil
		}
		h.transport.Delay(ctx)
	}
}

func (h *Harvester) emitPage(query string, page, rows, bytes int, dur time.Duration) {
	if h.emitter == nil {
		return
	}
	h.emitter.Emit(progress.Event{
		RunID:    progress.UUIDToBytes(h.runID),
		TS:       h.clock.Now(),
		Stage:    progress.StagePageDone,
		Category: query,
		Page:     page,
		Rows:     int64(rows),
		Bytes:    int64(bytes),
		Dur:      dur,
	})
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
