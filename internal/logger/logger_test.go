package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("INFO") })

	SetLevel("error")
	assert.False(t, Enabled("warn"))
	assert.True(t, Enabled("error"))

	SetLevel("DEBUG")
	assert.True(t, Enabled("debug"))

	// Unknown levels leave the current one untouched.
	SetLevel("verbose")
	assert.True(t, Enabled("debug"))
}

func TestConfigure_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "filewallet.log")
	t.Cleanup(func() {
		_ = Configure(Config{Level: "INFO", Format: "text", Output: "stdout"})
	})

	require.NoError(t, Configure(Config{Level: "INFO", Format: "json", Output: path}))

	Debug("hidden %d", 1)
	Info("upload stored id=%s", "abc")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `"msg":"upload stored id=abc"`)
	assert.False(t, strings.Contains(out, "hidden"))
}
