package namespace_test

import (
	"testing"

	"github.com/hathitrust/feed/namespace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	ns := &namespace.Namespace{
		Identifier: "yale-ns-test",
		Config:     map[string]interface{}{"decomposition_levels": "3..32"},
		PackageTypeOverrides: map[string]map[string]interface{}{
			"epub": {"decomposition_levels": "3..8"},
		},
	}
	namespace.Register(ns)

	got, err := namespace.Lookup("yale-ns-test")
	require.NoError(t, err)
	assert.Same(t, ns, got)
}

func TestOverridesFor(t *testing.T) {
	ns := &namespace.Namespace{
		Identifier: "foo-ns-test",
		PackageTypeOverrides: map[string]map[string]interface{}{
			"epub": {"decomposition_levels": "3..8"},
		},
	}
	assert.Equal(t, map[string]interface{}{"decomposition_levels": "3..8"}, ns.OverridesFor("epub"))
	assert.Nil(t, ns.OverridesFor("google"))
}

func TestOverridesForNilMap(t *testing.T) {
	ns := &namespace.Namespace{Identifier: "bare-ns-test"}
	assert.Nil(t, ns.OverridesFor("epub"))
}
