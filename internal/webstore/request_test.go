package webstore

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// decodeRequest percent-decodes and JSON-parses a built body back into the
// query, amount, and pagination token it carries.
func decodeRequest(t *testing.T, body string) (string, int, string) {
	t.Helper()

	require.True(t, strings.HasPrefix(body, requestField+"="))
	raw, err := url.QueryUnescape(strings.TrimPrefix(body, requestField+"="))
	require.NoError(t, err)

	var envelope []any
	require.NoError(t, json.Unmarshal([]byte(raw), &envelope))

	rpc := envelope[0].([]any)[0].([]any)
	require.Equal(t, rpcMethodID, rpc[0])
	require.Nil(t, rpc[2])
	require.Equal(t, "generic", rpc[3])

	var sub []any
	require.NoError(t, json.Unmarshal([]byte(rpc[1].(string)), &sub))
	search := sub[0].([]any)[1].([]any)[0].([]any)
	require.EqualValues(t, 3, search[0])

	query := search[1].(string)
	pageArgs := search[5].([]any)
	amount := int(pageArgs[0].(float64))
	token := ""
	if len(pageArgs) > 1 {
		token = pageArgs[1].(string)
	}
	return query, amount, token
}

func TestBuildRequestRoundTrip(t *testing.T) {
	t.Parallel()
	body := BuildRequest("productivity/education", 32, "")
	query, amount, token := decodeRequest(t, body)
	require.Equal(t, "productivity/education", query)
	require.Equal(t, 32, amount)
	require.Empty(t, token)
}

func TestBuildRequestWithToken(t *testing.T) {
	t.Parallel()
	body := BuildRequest("lifestyle", 16, "tok-123")
	query, amount, token := decodeRequest(t, body)
	require.Equal(t, "lifestyle", query)
	require.Equal(t, 16, amount)
	require.Equal(t, "tok-123", token)
}

func TestBuildRequestTokenChangesPayloadShape(t *testing.T) {
	t.Parallel()
	// Token absence and presence are different payload shapes, not a null
	// second argument.
	without := BuildRequest("q", 8, "")
	raw, err := url.QueryUnescape(strings.TrimPrefix(without, requestField+"="))
	require.NoError(t, err)
	require.NotContains(t, raw, "[8,null]")
	require.Contains(t, raw, "[8]")
}

func TestBuildRequestEscapesQuery(t *testing.T) {
	t.Parallel()
	body := BuildRequest(`with "quotes" & unicode ✓`, 4, "")
	query, amount, _ := decodeRequest(t, body)
	require.Equal(t, `with "quotes" & unicode ✓`, query)
	require.Equal(t, 4, amount)
}
