// File: internal/runner/registry_test.go
package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwright/stepwright/api/schemas"
)

func noopFunc(ctx context.Context, adapter schemas.DriverAdapter) error { return nil }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("login", noopFunc))

	fn, ok := registry.Lookup("login")
	assert.True(t, ok)
	assert.NotNil(t, fn)

	_, ok = registry.Lookup("logout")
	assert.False(t, ok)
}

func TestRegistry_RejectsBadRegistrations(t *testing.T) {
	registry := NewRegistry()

	assert.Error(t, registry.Register("", noopFunc))
	assert.Error(t, registry.Register("nil-fn", nil))

	require.NoError(t, registry.Register("login", noopFunc))
	assert.Error(t, registry.Register("login", noopFunc), "duplicate registration must fail")
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("login", noopFunc))
	require.NoError(t, registry.Register("checkout", noopFunc))

	names := registry.Names()
	assert.ElementsMatch(t, []string{"login", "checkout"}, names)
}
