// Package registry implements the factory registry: a process-wide,
// string-keyed index of Namespace, PackageType, and Stage descriptors,
// populated at program start by each descriptor's defining package
// calling Register from an init() hook rather than a runtime directory
// scan.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hathitrust/feed/ingesterr"
)

// Kind distinguishes the three registries the core maintains.
type Kind string

const (
	KindNamespace   Kind = "namespace"
	KindPackageType Kind = "packagetype"
	KindStage       Kind = "stage"
)

var (
	mu    sync.RWMutex
	tables = map[Kind]map[string]interface{}{
		KindNamespace:   {},
		KindPackageType: {},
		KindStage:       {},
	}
)

// Register adds descriptor under identifier in the named kind's table.
// Duplicate identifiers are a fatal startup error: Register
// panics rather than returning one, since it's only ever called from
// package-level init() hooks where there is no sensible error return and
// a duplicate identifier is a programmer mistake, not a runtime
// condition.
func Register(kind Kind, identifier string, descriptor interface{}) {
	mu.Lock()
	defer mu.Unlock()
	table := tables[kind]
	if _, exists := table[identifier]; exists {
		panic(fmt.Sprintf("registry: duplicate %s identifier %q", kind, identifier))
	}
	table[identifier] = descriptor
}

// Lookup returns the descriptor registered under identifier, or an
// ingesterr.UnknownSubclass error if none was registered.
func Lookup(kind Kind, identifier string) (interface{}, error) {
	mu.RLock()
	defer mu.RUnlock()
	descriptor, ok := tables[kind][identifier]
	if !ok {
		return nil, ingesterr.New(ingesterr.UnknownSubclass, nil,
			"kind", string(kind), "identifier", identifier)
	}
	return descriptor, nil
}

// Enumerate returns every identifier registered under kind, sorted.
func Enumerate(kind Kind) []string {
	mu.RLock()
	defer mu.RUnlock()
	ids := make([]string, 0, len(tables[kind]))
	for id := range tables[kind] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// reset clears every table. Exists only for tests, which otherwise leak
// registrations across package-level init() calls within a test binary.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	tables = map[Kind]map[string]interface{}{
		KindNamespace:   {},
		KindPackageType: {},
		KindStage:       {},
	}
}
