// Package configresolver implements the layered configuration lookup:
// for any key, the highest-priority layer that defines it wins; for
// validator parameter overrides, layers are merged instead so a higher
// layer can override individual parameters without dropping its
// siblings.
package configresolver

import (
	"github.com/hathitrust/feed/config"
	"github.com/hathitrust/feed/namespace"
	"github.com/hathitrust/feed/packagetype"
)

// Resolver resolves configuration keys for one (namespace, packagetype)
// pair against the global config file as the fallback layer.
type Resolver struct {
	Global *config.Config
}

func New(global *config.Config) *Resolver {
	return &Resolver{Global: global}
}

// Get looks up key in priority order:
//  1. namespace.packagetype_overrides[packagetype.identifier][key]
//  2. namespace.config[key]
//  3. packagetype.config[key]
//  4. the global configuration file under the same key path
//
// The second return value is false if no layer defines key.
func (r *Resolver) Get(ns *namespace.Namespace, pt *packagetype.PackageType, key string) (interface{}, bool) {
	if ns != nil {
		if overrides := ns.OverridesFor(pt.Identifier); overrides != nil {
			if v, ok := overrides[key]; ok {
				return v, true
			}
		}
		if v, ok := ns.Config[key]; ok {
			return v, true
		}
	}
	if pt != nil {
		if v, ok := pt.Config()[key]; ok {
			return v, true
		}
	}
	if r.Global != nil {
		return r.Global.Get(key)
	}
	return nil, false
}

// GetValidationOverrides computes the effective parameter map for
// validatorID by merging (lowest to highest priority) the
// validation[validatorID] sub-map from the package type's own
// validation config, the namespace's config, and the namespace's
// packagetype_overrides — so a higher layer overrides individual
// validator parameters without dropping sibling keys.
func (r *Resolver) GetValidationOverrides(ns *namespace.Namespace, pt *packagetype.PackageType, validatorID string) map[string]interface{} {
	merged := map[string]interface{}{}

	if pt != nil {
		for k, v := range pt.Validation[validatorID] {
			merged[k] = v
		}
	}
	if ns != nil {
		if nsValidation, ok := asValidationMap(ns.Config["validation"]); ok {
			for k, v := range nsValidation[validatorID] {
				merged[k] = v
			}
		}
		if overrides := ns.OverridesFor(pt.Identifier); overrides != nil {
			if ptValidation, ok := asValidationMap(overrides["validation"]); ok {
				for k, v := range ptValidation[validatorID] {
					merged[k] = v
				}
			}
		}
	}
	return merged
}

// asValidationMap type-asserts a config value shaped like
// validation[validatorID][param] = value. Namespace.Config is a free-
// form map[string]interface{}, so a "validation" entry arrives as
// map[string]interface{} when built directly in Go (as every namespace
// fixture in this repo does) rather than via JSON unmarshaling.
func asValidationMap(v interface{}) (map[string]map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]map[string]interface{}:
		return m, true
	case map[string]interface{}:
		out := make(map[string]map[string]interface{}, len(m))
		for k, inner := range m {
			if innerMap, ok := inner.(map[string]interface{}); ok {
				out[k] = innerMap
			}
		}
		return out, true
	default:
		return nil, false
	}
}
