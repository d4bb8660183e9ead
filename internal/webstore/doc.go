// Package webstore implements the Chrome Web Store harvest pipeline: RPC
// request construction, transport with bounded retry, extraction of rows
// from the endpoint's double-escaped envelope, positional row decoding, and
// the sequential page loop that ties them together.
//
// The upstream surface is undocumented and reverse-engineered. Everything
// here is written to fail softly: malformed rows are dropped, a malformed
// envelope ends the crawl keeping whatever was already accumulated, and only
// total transport failure before the first page is reported as an error.
package webstore
