package x11c

import "sync"

// extensionKey packs an extension name into the fixed 24-byte, zero-padded
// form spec.md §3/§4.3 defines as the cache key. Names longer than 24
// bytes are truncated identically on encode and lookup.
func extensionKey(name string) [extensionNameSize]byte {
	var key [extensionNameSize]byte
	n := copy(key[:], name)
	_ = n
	return key
}

// ExtensionCache maps an extension name to its server-assigned major
// opcode, querying the server at most once per name (spec.md §8 invariant
// 5). A plain mutex-guarded map is sufficient and deliberately not an LRU:
// see DESIGN.md for why eviction would violate the "query once, ever"
// invariant.
type ExtensionCache struct {
	mu      sync.Mutex
	entries map[[extensionNameSize]byte]uint8
}

// NewExtensionCache returns an empty cache.
func NewExtensionCache() *ExtensionCache {
	return &ExtensionCache{entries: make(map[[extensionNameSize]byte]uint8)}
}

// lookup returns the cached opcode for name, if any, without issuing a
// QueryExtension request.
func (c *ExtensionCache) lookup(name string) (uint8, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	opcode, ok := c.entries[extensionKey(name)]
	return opcode, ok
}

// store records a resolved opcode for name.
func (c *ExtensionCache) store(name string, opcode uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[extensionKey(name)] = opcode
}
