package hostvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateImportsAllowsAllowListed(t *testing.T) {
	err := ValidateImports([]string{"fmt", "strings", "math"})
	assert.NoError(t, err)
}

func TestValidateImportsRejectsBlocked(t *testing.T) {
	err := ValidateImports([]string{"os/exec"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explicitly blocked")
}

func TestValidateImportsRejectsUnlisted(t *testing.T) {
	err := ValidateImports([]string{"crypto/tls"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the host-VM allow-list")
}

func TestRunEvaluatesEntrypoint(t *testing.T) {
	vm := New(nil)
	artifact := Artifact{
		Source: `
package genpkg

func Greet() interface{} {
	return "hello"
}
`,
		Entrypoint: "genpkg.Greet",
		Imports:    nil,
	}
	out, err := vm.Run(context.Background(), artifact)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRunRejectsBlockedImport(t *testing.T) {
	vm := New(nil)
	artifact := Artifact{
		Source:     `package genpkg`,
		Entrypoint: "genpkg.Main",
		Imports:    []string{"os/exec"},
	}
	_, err := vm.Run(context.Background(), artifact)
	require.Error(t, err)
}
