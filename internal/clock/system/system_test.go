package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowIsUTC(t *testing.T) {
	t.Parallel()
	clk := New()
	now := clk.Now()
	require.Equal(t, time.UTC, now.Location())
	require.WithinDuration(t, time.Now().UTC(), now, time.Second)
}
