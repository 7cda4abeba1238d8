package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis database without clobbering each other's entries.
//
// Example usage:
//
//	// Staging and production on the same Redis
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "folio:staging:")
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

// NotesKey generates a prefixed note listing key.
func (k *ScopedKeyer) NotesKey(scope string) string {
	return k.prefix + k.inner.NotesKey(scope)
}

// BlogListKey generates a prefixed blog listing key.
func (k *ScopedKeyer) BlogListKey(opts BlogListKeyOpts) string {
	return k.prefix + k.inner.BlogListKey(opts)
}

// BlogGenerationKey generates a prefixed generation key.
func (k *ScopedKeyer) BlogGenerationKey() string {
	return k.prefix + k.inner.BlogGenerationKey()
}
