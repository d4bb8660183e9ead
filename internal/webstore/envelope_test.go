package webstore

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// encodeEnvelope serializes rows the way the endpoint does: each row is
// wrapped as the single element of an item, the item list is double-nested,
// and the whole payload is embedded escaped inside a larger response body.
func encodeEnvelope(t *testing.T, rows []RawRow) string {
	t.Helper()

	items := make([]any, 0, len(rows))
	for _, row := range rows {
		items = append(items, []any{[]any(row)})
	}
	payload := []any{[]any{items}}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	escaped := strings.ReplaceAll(string(raw), `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return ")]}'\n\n[[\"wrb.fr\",\"zTyKYc\",\"" + escaped +
		"\",null,null,null,\"generic\"]]\n25\n[[\"di\",59]]"
}

// fixtureRow ends with the creation-date list so the serialized payload
// carries the closing sentinel.
func fixtureRow(id, name string) RawRow {
	return RawRow{
		id,
		"https://example.com/icon.png",
		name,
		"4.5",
		"1200",
		nil,
		"Does useful things",
		"https://example.com",
		1.0,
		0.0,
		nil,
		[]any{"productivity"},
		nil,
		nil,
		"10,000+",
		nil,
		nil,
		[]any{1633024800.0},
	}
}

func TestExtractRowsRoundTrip(t *testing.T) {
	t.Parallel()

	want := []RawRow{
		fixtureRow("aaaa", "First"),
		fixtureRow("bbbb", "Second"),
	}
	got, err := ExtractRows(encodeEnvelope(t, want))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestExtractRowsUnescapesManifestQuotes(t *testing.T) {
	t.Parallel()

	row := fixtureRow("cccc", "Manifested")
	row = append(row,
		`{"version":"1.2.3","permissions":["tabs"],"host_permissions":["https://*/*"]}`,
		"Display Name",
		[]any{},
	)
	got, err := ExtractRows(encodeEnvelope(t, []RawRow{row}))
	require.NoError(t, err)
	require.Len(t, got, 1)

	ext, ok := DecodeRow(got[0])
	require.True(t, ok)
	require.Equal(t, "1.2.3", ext.Version)
	require.True(t, ext.HostWidePermissions)
	require.Equal(t, "Display Name", ext.DisplayName)
}

func TestExtractRowsSkipsMalformedItems(t *testing.T) {
	t.Parallel()

	first := fixtureRow("dddd", "First")
	last := fixtureRow("eeee", "Last")
	items := []any{
		[]any{[]any(first)},
		"not an item",
		[]any{},
		[]any{"wrapper holds a string"},
		[]any{[]any(last)},
	}
	payload := []any{[]any{items}}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	escaped := strings.ReplaceAll(string(raw), `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)

	got, err := ExtractRows(escaped)
	require.NoError(t, err)
	require.Equal(t, []RawRow{first, last}, got)
}

func TestExtractRowsMissingOpeningSentinel(t *testing.T) {
	t.Parallel()

	var extractErr *ExtractionError
	_, err := ExtractRows("<html><body>rate limited</body></html>")
	require.Error(t, err)
	require.ErrorAs(t, err, &extractErr)
}

func TestExtractRowsMissingClosingSentinel(t *testing.T) {
	t.Parallel()

	var extractErr *ExtractionError
	_, err := ExtractRows(`[[[[["truncated response`)
	require.Error(t, err)
	require.ErrorAs(t, err, &extractErr)
}

func TestExtractRowsInvalidPayload(t *testing.T) {
	t.Parallel()

	var extractErr *ExtractionError
	_, err := ExtractRows(`junk [[[[[ more junk ]]]]]] tail`)
	require.Error(t, err)
	require.ErrorAs(t, err, &extractErr)
}

func TestExtractRowsEmptyRowsAreSkipped(t *testing.T) {
	t.Parallel()

	got, err := ExtractRows(`prefix[[[[[],[[]]]]]]`)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestExtractionErrorUnwraps(t *testing.T) {
	t.Parallel()

	_, err := ExtractRows(`noise [[[[[ broken ]]]]]]`)
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	require.NotEmpty(t, extractErr.Reason)
	if extractErr.Err != nil {
		require.True(t, errors.Is(err, extractErr.Err))
	}
}
