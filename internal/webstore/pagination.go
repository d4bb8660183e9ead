package webstore

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/extwatch/storecrawl/internal/hash/sha256"
	"github.com/extwatch/storecrawl/internal/storage"
)

// tokenDelimiter precedes the quoted array entry that carries the
// continuation token in the raw response text.
const tokenDelimiter = `[\"`

// debugObjectName is the fixed diagnostic location for responses the token
// heuristic could not handle.
const debugObjectName = "debug_response.txt"

// TokenTracker extracts the continuation token for the next page from raw
// response text. The extraction is a best-effort heuristic with no
// validation that the substring is actually a token; when it fails, the raw
// response is persisted for offline inspection and "no token" is reported.
type TokenTracker struct {
	debug  storage.BlobStore
	prefix string
	hasher *sha256.Hasher
	logger *zap.Logger
}

// NewTokenTracker builds a tracker. debug may be nil, in which case failed
// responses are only logged. prefix namespaces the debug object within the
// store.
func NewTokenTracker(debug storage.BlobStore, prefix string, logger *zap.Logger) *TokenTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenTracker{
		debug:  debug,
		prefix: prefix,
		hasher: sha256.New(),
		logger: logger,
	}
}

// NextToken splits the raw text on the token delimiter, takes the final
// segment, and cuts it at the first remaining backslash. A missing delimiter
// or empty result means no further pages; that path never errors.
func (t *TokenTracker) NextToken(ctx context.Context, text string) (string, bool) {
	parts := strings.Split(text, tokenDelimiter)
	if len(parts) < 2 {
		t.persistDebug(ctx, text)
		return "", false
	}
	tail := parts[len(parts)-1]
	if i := strings.IndexByte(tail, '\\'); i >= 0 {
		tail = tail[:i]
	}
	if tail == "" {
		t.persistDebug(ctx, text)
		return "", false
	}
	return tail, true
}

func (t *TokenTracker) persistDebug(ctx context.Context, text string) {
	TotalTokenMisses.Inc()
	digest := t.hasher.Hash([]byte(text))
	if t.debug == nil {
		t.logger.Debug("no pagination token found", zap.String("response_sha256", digest))
		return
	}
	name := debugObjectName
	if t.prefix != "" {
		name = t.prefix + "/" + debugObjectName
	}
	uri, err := t.debug.PutObject(ctx, name, "text/plain; charset=utf-8", []byte(text))
	if err != nil {
		t.logger.Warn("failed to persist debug response",
			zap.String("response_sha256", digest), zap.Error(err))
		return
	}
	t.logger.Info("no pagination token found; saved raw response",
		zap.String("uri", uri), zap.String("response_sha256", digest))
}
