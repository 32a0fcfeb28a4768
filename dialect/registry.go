package dialect

import (
	"slices"
	"sync"
)

var (
	adaptersMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register makes an adapter available under tag. Registering an existing
// tag replaces the previous adapter. Built-in adapters are registered by
// the dialect/sql package at init; callers add their own before any load
// refers to the tag. Register panics if a is nil.
func Register(tag string, a Adapter) {
	if a == nil {
		panic("dialect: Register adapter is nil")
	}
	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	adapters[tag] = a
}

// Lookup returns the adapter registered under tag.
func Lookup(tag string) (Adapter, error) {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()
	a, ok := adapters[tag]
	if !ok {
		return nil, NewConfigError(tag, "unregistered adapter")
	}
	return a, nil
}

// Tags returns the registered tags in sorted order.
func Tags() []string {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()
	tags := make([]string, 0, len(adapters))
	for t := range adapters {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}

// Unregister removes tag from the registry.
func Unregister(tag string) {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	delete(adapters, tag)
}
