package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/extwatch/storecrawl/internal/config"
)

func TestNewWiresMemoryBackedService(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Provider = "memory"

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a.Runner)
	require.NotNil(t, a.Hub)

	a.Close(context.Background())
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Provider = "tape"

	_, err = New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
