package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// In shared deployments each triple store (or each team's datasets) gets
// its own cache namespace so invalidation never crosses tenants.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "tenant:grid-west:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// RowsKey generates a prefixed key for raw row set caching.
func (k *ScopedKeyer) RowsKey(endpoint, dataset string) string {
	return k.prefix + k.inner.RowsKey(endpoint, dataset)
}

// DocumentKey generates a prefixed key for layout document caching.
func (k *ScopedKeyer) DocumentKey(rowsHash string, opts DocumentKeyOpts) string {
	return k.prefix + k.inner.DocumentKey(rowsHash, opts)
}
