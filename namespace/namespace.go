// Package namespace implements the Namespace descriptor: per-institution
// configuration layered over a PackageType's own base configuration and
// the global config file.
package namespace

import (
	"github.com/hathitrust/feed/registry"
)

// Namespace is the immutable per-institution descriptor.
type Namespace struct {
	Identifier  string
	Description string

	// Config is this namespace's own key-value overrides, applied over
	// a package type's base config and under any packagetype_overrides
	// entry.
	Config map[string]interface{}

	// PackageTypeOverrides maps a package type identifier to a
	// key-value map layered on top of Config — the highest-priority
	// layer in the lookup order.
	PackageTypeOverrides map[string]map[string]interface{}
}

// Register adds ns to the global Namespace registry under its own
// Identifier.
func Register(ns *Namespace) {
	registry.Register(registry.KindNamespace, ns.Identifier, ns)
}

// Lookup retrieves a previously registered Namespace by identifier.
func Lookup(identifier string) (*Namespace, error) {
	v, err := registry.Lookup(registry.KindNamespace, identifier)
	if err != nil {
		return nil, err
	}
	return v.(*Namespace), nil
}

// OverridesFor returns the packagetype_overrides map for packageTypeID,
// or nil if none is configured.
func (ns *Namespace) OverridesFor(packageTypeID string) map[string]interface{} {
	if ns.PackageTypeOverrides == nil {
		return nil
	}
	return ns.PackageTypeOverrides[packageTypeID]
}
