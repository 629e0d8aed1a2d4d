package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line: %s", line)
		out = append(out, m)
	}
	return out
}

func TestNew_InfoLevel(t *testing.T) {
	os.Unsetenv(DebugEnv)

	var buf bytes.Buffer
	l, _ := New(Options{Output: &buf})

	l.Debug("hidden %d", 1)
	l.Info("poll %s", "started")
	l.Warn("slow poll")
	l.Error("poll failed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3, "debug should be filtered at info level")

	assert.Equal(t, "poll started", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "warn", lines[1]["severity"])
	assert.Equal(t, "error", lines[2]["level"])
}

func TestNew_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Options{Output: &buf, Debug: true})

	l.Debug("session renewed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "session renewed", lines[0]["message"])
	assert.Equal(t, "debug", lines[0]["level"])
}

func TestNew_DebugFromEnv(t *testing.T) {
	t.Setenv(DebugEnv, "1")

	var buf bytes.Buffer
	l, _ := New(Options{Output: &buf})
	l.Debug("visible")

	assert.Contains(t, buf.String(), "visible")
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Options{Output: &buf})

	Named(l, "rpc").Info("login ok")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "rpc", lines[0]["logger"])

	// Non-logr loggers pass through unchanged
	b := NewBufferLogger()
	assert.Same(t, b, Named(b, "rpc"))
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halowdiag.log")

	l, _ := New(Options{File: path})
	l.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestInit_SetsDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer
	l := Init(Options{Output: &buf})

	assert.Equal(t, l, Default())
}
