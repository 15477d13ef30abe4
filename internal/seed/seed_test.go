package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAllowedSubset(t *testing.T) {
	c := New(nil)
	res := c.Compile([]byte(`
obj Counter {
    has n: int = 0;
    def bump() -> int {
        n = n + 1;
        return n;
    }
}
`), "counter.jac")
	require.Empty(t, res.Diagnostics)
	assert.Contains(t, res.Source, "type Counter struct")
}

func TestCompileRejectsTryExcept(t *testing.T) {
	c := New(nil)
	res := c.Compile([]byte(`
def risky() -> int {
    try {
        return 1;
    } except Exception {
        return 0;
    }
}
`), "risky.jac")
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, "risky.jac", res.Diagnostics[0].File)
}

func TestCompileRejectsSyntaxErrors(t *testing.T) {
	c := New(nil)
	res := c.Compile([]byte(`obj {{{ not valid`), "bad.jac")
	require.NotEmpty(t, res.Diagnostics)
}

func TestCompileFileMissing(t *testing.T) {
	c := New(nil)
	_, err := c.CompileFile("/nonexistent/path/does-not-exist.jac")
	require.Error(t, err)
}
