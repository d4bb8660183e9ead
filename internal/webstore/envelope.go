package webstore

import (
	"encoding/json"
	"strings"
)

// Envelope sentinels: the payload opens with five consecutive brackets and
// the matching close is six consecutive brackets.
const (
	openSentinel  = "[[[[["
	closeSentinel = "]]]]]]"
)

// ExtractRows recovers the positional rows from the endpoint's envelope. The
// payload is JSON that was embedded, escaped, inside another JSON string;
// the cleanup below undoes that embedding. Returns *ExtractionError when the
// response lacks either sentinel or the cleaned text is not valid JSON,
// which usually means the endpoint served an error page.
func ExtractRows(text string) ([]RawRow, error) {
	start := strings.Index(text, openSentinel)
	if start < 0 {
		return nil, &ExtractionError{Reason: "missing opening sentinel"}
	}
	payload := text[start:]

	end := strings.Index(payload, closeSentinel)
	if end < 0 {
		return nil, &ExtractionError{Reason: "missing closing sentinel"}
	}
	payload = payload[:end] + closeSentinel

	// Unescape order is load-bearing: backslash-escaped backslashes must be
	// collapsed before escaped quotes, or already-unescaped quotes corrupt.
	payload = strings.ReplaceAll(payload, `\\`, `\`)
	payload = strings.ReplaceAll(payload, `\"`, `"`)
	payload = strings.ReplaceAll(payload, "\n", "")
	payload = strings.TrimSuffix(payload, ",")

	var decoded []any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, &ExtractionError{Reason: "payload is not valid JSON", Err: err}
	}

	// The row sequence sits at decoded[0][0]; each entry wraps one
	// positional row as its single element.
	outer, ok := firstList(decoded)
	if !ok {
		return nil, &ExtractionError{Reason: "payload missing outer list"}
	}
	items, ok := firstList(outer)
	if !ok {
		return nil, &ExtractionError{Reason: "payload missing row list"}
	}

	rows := make([]RawRow, 0, len(items))
	for _, item := range items {
		wrapper, ok := item.([]any)
		if !ok || len(wrapper) == 0 {
			continue
		}
		row, ok := wrapper[0].([]any)
		if !ok || len(row) == 0 {
			continue
		}
		rows = append(rows, RawRow(row))
	}
	return rows, nil
}

func firstList(v []any) ([]any, bool) {
	if len(v) == 0 {
		return nil, false
	}
	list, ok := v[0].([]any)
	return list, ok
}
