// Package cache provides caching for the two expensive artifacts of a
// conversion run: the raw row set fetched from the triple store and the
// assembled layout document. Backends cover single-user CLI usage (file),
// shared deployments (Redis), and tests (null).
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// keyVersion invalidates all cached artifacts when the key schema or the
// document contract changes. Bump on any output-affecting change.
const keyVersion = "v1"

// Default TTLs per artifact kind. Row sets age out so upstream model
// edits become visible without manual invalidation; documents are pure
// functions of rows and convention, so they can live longer.
const (
	TTLRows     = 15 * time.Minute
	TTLDocument = 24 * time.Hour
)

// DocumentKeyOpts captures everything besides the row set that affects
// the assembled document.
type DocumentKeyOpts struct {
	Convention string
	// ConfigHash covers convention overrides; empty when none are loaded.
	ConfigHash string
}

// Keyer generates cache keys. Implementations must be deterministic:
// the same inputs always produce the same key.
type Keyer interface {
	// RowsKey keys the raw row set fetched for a dataset.
	RowsKey(endpoint, dataset string) string

	// DocumentKey keys an assembled layout document by the hash of the
	// rows it was built from plus the convention parameters.
	DocumentKey(rowsHash string, opts DocumentKeyOpts) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// RowsKey implements Keyer.
func (k *DefaultKeyer) RowsKey(endpoint, dataset string) string {
	return hashKey("rows:"+keyVersion, endpoint, dataset)
}

// DocumentKey implements Keyer.
func (k *DefaultKeyer) DocumentKey(rowsHash string, opts DocumentKeyOpts) string {
	return hashKey("doc:"+keyVersion, rowsHash, opts.Convention, opts.ConfigHash)
}
