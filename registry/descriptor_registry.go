/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"sync"

	"github.com/suparena/fieldstore/identity"
)

// The descriptor registry maps Go entity types to their identifier descriptors.

var (
	descriptorRegistry = make(map[reflect.Type]any)
	mu                 sync.RWMutex
)

// RegisterDescriptor associates the entity type V with its identifier descriptor.
// A later registration for the same type replaces the earlier one.
func RegisterDescriptor[K comparable, V any](d *identity.Descriptor[K, V]) {
	t := reflect.TypeOf((*V)(nil)).Elem()

	mu.Lock()
	defer mu.Unlock()
	descriptorRegistry[t] = d
}

// GetDescriptor retrieves the descriptor registered for V, if any. It reports
// false when no descriptor exists or when the registered one uses another key type.
func GetDescriptor[K comparable, V any]() (*identity.Descriptor[K, V], bool) {
	t := reflect.TypeOf((*V)(nil)).Elem()

	mu.RLock()
	defer mu.RUnlock()
	raw, ok := descriptorRegistry[t]
	if !ok {
		return nil, false
	}
	d, ok := raw.(*identity.Descriptor[K, V])
	return d, ok
}

// UnregisterDescriptor removes any descriptor registered for V.
func UnregisterDescriptor[V any]() {
	t := reflect.TypeOf((*V)(nil)).Elem()

	mu.Lock()
	defer mu.Unlock()
	delete(descriptorRegistry, t)
}
