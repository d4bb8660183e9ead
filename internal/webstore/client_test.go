package webstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, endpoint string, maxRetries int) (*Client, *[]time.Duration) {
	t.Helper()
	client, err := NewClient(ClientConfig{
		Endpoint:   endpoint,
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
	}, zap.NewNop())
	require.NoError(t, err)

	waits := &[]time.Duration{}
	client.sleep = func(_ context.Context, d time.Duration) {
		*waits = append(*waits, d)
	}
	t.Cleanup(client.Close)
	return client, waits
}

func TestClientSendSuccess(t *testing.T) {
	t.Parallel()

	var gotHeaders http.Header
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		_, _ = w.Write([]byte("response text"))
	}))
	defer srv.Close()

	client, waits := newTestClient(t, srv.URL+"/batchexecute", 3)
	text, err := client.Send(context.Background(), "f.req=payload")
	require.NoError(t, err)
	require.Equal(t, "response text", text)
	require.Empty(t, *waits)

	require.Equal(t, "f.req=payload", gotBody)
	require.Equal(t, "test-agent", gotHeaders.Get("User-Agent"))
	require.Equal(t, "application/x-www-form-urlencoded;charset=UTF-8", gotHeaders.Get("Content-Type"))
	require.Equal(t, srv.URL, gotHeaders.Get("Origin"))
	require.Equal(t, srv.URL+"/", gotHeaders.Get("Referer"))
	require.Equal(t, "cors", gotHeaders.Get("Sec-Fetch-Mode"))
	require.Equal(t, "same-origin", gotHeaders.Get("Sec-Fetch-Site"))
}

func TestClientSendRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client, waits := newTestClient(t, srv.URL, 5)
	text, err := client.Send(context.Background(), "f.req=x")
	require.NoError(t, err)
	require.Equal(t, "ok", text)
	require.EqualValues(t, 3, hits.Load())

	// Waits before the second and third attempts: 2^0 and 2^1 seconds plus
	// sub-second jitter.
	require.Len(t, *waits, 2)
	require.GreaterOrEqual(t, (*waits)[0], time.Second)
	require.Less(t, (*waits)[0], 2*time.Second)
	require.GreaterOrEqual(t, (*waits)[1], 2*time.Second)
	require.Less(t, (*waits)[1], 3*time.Second)
}

func TestClientSendExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, waits := newTestClient(t, srv.URL, 3)
	_, err := client.Send(context.Background(), "f.req=x")
	require.Error(t, err)
	require.EqualValues(t, 3, hits.Load())
	require.Len(t, *waits, 2)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, 3, transportErr.Attempts)
	require.ErrorContains(t, transportErr.Err, "429")
}

func TestClientSendStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client, _ := newTestClient(t, srv.URL, 10)
	client.sleep = func(context.Context, time.Duration) { cancel() }

	_, err := client.Send(ctx, "f.req=x")
	require.Error(t, err)
	require.LessOrEqual(t, hits.Load(), int64(2))
}

func TestClientDelayWithinRange(t *testing.T) {
	t.Parallel()

	client, err := NewClient(ClientConfig{
		Endpoint:   "https://chromewebstore.google.com/_/ChromeWebStoreConsumerFeUi/data/batchexecute",
		MaxRetries: 1,
		DelayMin:   10 * time.Millisecond,
		DelayMax:   20 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	var waits []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) {
		waits = append(waits, d)
	}
	for range 20 {
		client.Delay(context.Background())
	}
	require.Len(t, waits, 20)
	for _, w := range waits {
		require.GreaterOrEqual(t, w, 10*time.Millisecond)
		require.Less(t, w, 20*time.Millisecond)
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientConfig{MaxRetries: 3}, nil)
	require.Error(t, err)

	_, err = NewClient(ClientConfig{Endpoint: "https://example.com", MaxRetries: 0}, nil)
	require.Error(t, err)

	_, err = NewClient(ClientConfig{Endpoint: "not-a-url", MaxRetries: 3}, nil)
	require.Error(t, err)
}
