// File: cmd/validate_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwright/stepwright/api/schemas"
	"github.com/stepwright/stepwright/internal/config"
)

func writeTempFlow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runValidate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.SetDefaults(viper.GetViper())

	cmd := newValidateCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand_ValidFlow(t *testing.T) {
	path := writeTempFlow(t, `{
		"project": {"name": "shop"},
		"steps": [
			{"name": "open home", "action": "navigate", "url": "https://shop.test/"},
			{"name": "wait for catalog", "action": "wait", "selector": "#catalog"}
		]
	}`)

	out, err := runValidate(t, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Flow is valid")
	assert.Contains(t, out, "2 steps")
}

func TestValidateCommand_InvalidFlow(t *testing.T) {
	path := writeTempFlow(t, `{
		"project": {"name": "shop"},
		"steps": [{"name": "broken", "action": "click"}]
	}`)

	_, err := runValidate(t, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow is invalid")
}

func TestRegisterCustomFunc(t *testing.T) {
	fn := func(ctx context.Context, adapter schemas.DriverAdapter) error { return nil }
	require.NoError(t, RegisterCustomFunc("cmd_test_fn", fn))
	assert.Error(t, RegisterCustomFunc("cmd_test_fn", fn), "duplicate registration must fail")
}
