// Package storage defines the blob store abstraction used for raw-response
// debug artifacts. The harvester persists the offending response text when
// pagination-token extraction fails; where those bytes land (local disk,
// memory, GCS) is an implementation detail behind BlobStore.
package storage

import "context"

// BlobStore writes raw artifacts and returns a URI for later inspection.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}
