package webstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRequests tracks HTTP requests dispatched to the endpoint,
	// including retries.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storecrawl_requests_total",
		Help: "The total number of HTTP requests sent to the web store endpoint.",
	})
	// TotalRequestErrors tracks individual request attempts that failed.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storecrawl_request_errors_total",
		Help: "The total number of failed HTTP request attempts.",
	})
	// TotalRetries tracks backoff-then-retry cycles in the transport.
	TotalRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storecrawl_request_retries_total",
		Help: "The total number of transport retries after a failed attempt.",
	})
	// TotalPages tracks pages whose envelope was successfully extracted.
	TotalPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storecrawl_pages_total",
		Help: "The total number of result pages extracted.",
	})
	// TotalRowsDecoded tracks rows that produced a valid extension.
	TotalRowsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storecrawl_rows_decoded_total",
		Help: "The total number of raw rows decoded into extensions.",
	})
	// TotalRowsDropped tracks rows discarded for failing required fields.
	TotalRowsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storecrawl_rows_dropped_total",
		Help: "The total number of raw rows dropped during decoding.",
	})
	// TotalTokenMisses tracks pages where no continuation token was found.
	TotalTokenMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storecrawl_pagination_token_misses_total",
		Help: "The total number of responses with no extractable pagination token.",
	})
)
