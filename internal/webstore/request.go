package webstore

import (
	"encoding/json"
	"net/url"
)

// Wire constants reverse-engineered from the batchexecute endpoint.
const (
	// rpcMethodID is the fixed identifier of the listing-search RPC.
	rpcMethodID = "zTyKYc"
	// requestField is the single form field carrying the encoded envelope.
	requestField = "f.req"
)

// BuildRequest produces the encoded request body for one page. The query and
// amount are embedded in a sub-payload that is JSON-encoded into a string,
// wrapped in the outer RPC envelope, JSON-encoded again, and percent-encoded.
// A continuation token, when present, is appended after amount as a second
// pagination argument; its absence is a genuinely different payload shape,
// not a null field. Pure and total.
func BuildRequest(query string, amount int, token string) string {
	pageArgs := []any{amount}
	if token != "" {
		pageArgs = append(pageArgs, token)
	}
	subPayload := []any{
		[]any{nil, []any{
			[]any{3, query, nil, nil, 2, pageArgs},
		}},
	}
	// Marshal cannot fail here: the structure holds only nil, numbers,
	// strings and slices of the same.
	inner, _ := json.Marshal(subPayload)

	envelope := []any{
		[]any{
			[]any{rpcMethodID, string(inner), nil, "generic"},
		},
	}
	body, _ := json.Marshal(envelope)

	return requestField + "=" + url.QueryEscape(string(body))
}
