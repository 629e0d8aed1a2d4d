package cli

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

// withVersion sets the build info for one test.
func withVersion(t *testing.T, v, c, d string) {
	t.Helper()
	origVersion, origCommit, origDate := version, commit, date
	t.Cleanup(func() { version, commit, date = origVersion, origCommit, origDate })
	SetVersionInfo(v, c, d)
}

func versionOutput(short bool) string {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	printVersion(cmd, short)
	return buf.String()
}

func TestVersionOutput(t *testing.T) {
	withVersion(t, "1.2.3", "abc1234", "2026-10-01T12:00:00Z")

	output := versionOutput(false)

	assert.Contains(t, output, "halowdiag v1.2.3", "should show version with v prefix")
	assert.Contains(t, output, "commit: abc1234")
	assert.Contains(t, output, "built: 2026-10-01T12:00:00Z")
	assert.Contains(t, output, "go: "+runtime.Version())
	assert.Contains(t, output, "os/arch: "+runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionOutputShort(t *testing.T) {
	withVersion(t, "1.2.3", "abc1234", "today")

	assert.Equal(t, "1.2.3", strings.TrimSpace(versionOutput(true)))
}

func TestVersionOutputDev(t *testing.T) {
	withVersion(t, "dev", "none", "unknown")

	assert.Contains(t, versionOutput(false), "halowdiag dev")
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1.0.0", "v1.0.0"},
		{"v1.0.0", "v1.0.0"},
		{"dev", "dev"},
		{"", ""},
		{"0.1.0-rc1", "v0.1.0-rc1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVersion(tt.in))
		})
	}
}

func TestVersionCommandHasShortFlag(t *testing.T) {
	flag := versionCmd.Flags().Lookup("short")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "false", flag.DefValue)
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	assert.NoError(t, versionCmd.PersistentPreRunE(versionCmd, nil))
}

func TestGetVersion(t *testing.T) {
	withVersion(t, "2.0.0", "x", "y")
	assert.Equal(t, "2.0.0", GetVersion())
}
