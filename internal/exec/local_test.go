package exec

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExecutor_SimpleCommand(t *testing.T) {
	e := NewLocalExecutor("", nil)

	res, err := e.Execute(context.Background(), "echo", []string{"hello"})

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, res.Stderr)
}

func TestLocalExecutor_NoShellInterpretation(t *testing.T) {
	e := NewLocalExecutor("", nil)

	res, err := e.Execute(context.Background(), "echo", []string{"$HOME", "a | b"})

	require.NoError(t, err)
	assert.Equal(t, "$HOME a | b\n", res.Stdout)
}

func TestLocalExecutor_NonZeroExitCode(t *testing.T) {
	e := NewLocalExecutor("", nil)

	res, err := e.Execute(context.Background(), "sh", []string{"-c", "echo out; echo err >&2; exit 42"})

	require.NoError(t, err, "non-zero exit is not an error")
	assert.Equal(t, 42, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestLocalExecutor_CommandNotFound(t *testing.T) {
	e := NewLocalExecutor("", nil)

	_, err := e.Execute(context.Background(), "halowdiag-nonexistent-command-xyz", nil)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
}

func TestLocalExecutor_ContextCancelled(t *testing.T) {
	e := NewLocalExecutor("", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.Execute(ctx, "sleep", []string{"5"})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestLocalExecutor_Poll(t *testing.T) {
	dir := t.TempDir()
	helper := filepath.Join(dir, "command-poll")
	script := "#!/bin/sh\necho \"$1: started\"\necho \"id=$2 args=$3 $4\"\n"
	require.NoError(t, os.WriteFile(helper, []byte(script), 0755))

	log := logger.NewBufferLogger()
	e := NewLocalExecutor(helper, log)

	out, err := e.Poll(context.Background(), "iperf3", "abc-123", []string{"-s", "-1"})

	require.NoError(t, err)
	assert.Equal(t, "iperf3: started\nid=abc-123 args=-s -1\n", out)
	assert.True(t, log.HasLevel("debug"))
}

func TestLocalExecutor_PollHelperMissing(t *testing.T) {
	e := NewLocalExecutor(filepath.Join(t.TempDir(), "missing-helper"), nil)

	_, err := e.Poll(context.Background(), "iperf3", "id", nil)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
}

func TestNewLocalExecutor_Defaults(t *testing.T) {
	e := NewLocalExecutor("", nil)
	assert.Equal(t, DefaultPollHelper, e.PollHelper)
	assert.NotNil(t, e.Log)

	var zero LocalExecutor
	assert.Equal(t, DefaultPollHelper, zero.helper())
}

var _ Executor = (*LocalExecutor)(nil)
