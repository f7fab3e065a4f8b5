package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]TableDefinition)
	registryMu sync.RWMutex
)

// Register adds a table definition to the registry.
// Panics if a table with the same name or dependency position is already
// registered; both would silently corrupt the migration order.
func Register(def TableDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Name]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Name))
	}
	for _, other := range registry {
		if other.Order == def.Order {
			panic(fmt.Sprintf("tables %s and %s share dependency position %d",
				other.Name, def.Name, def.Order))
		}
	}

	registry[def.Name] = def
}

// Get returns a table definition by name.
// Returns false if not found.
func Get(name string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[name]
	return def, ok
}

// ByOrder returns all registered table definitions in dependency order.
// Tables referencing earlier tables' rows (cuped_configs → experiments)
// rely on this ordering for their live reference checks.
func ByOrder() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Order < result[j].Order
	})

	return result
}

// Names returns all registered table names in dependency order.
func Names() []string {
	defs := ByOrder()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered tables.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]TableDefinition)
}
