package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashKnownVector(t *testing.T) {
	t.Parallel()
	h := New()
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		h.Hash(nil))
	require.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		h.Hash([]byte("hello")))
}
