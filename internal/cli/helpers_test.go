package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/halowlab/halowdiag/internal/config"
	"github.com/halowlab/halowdiag/internal/exec"
	"github.com/spf13/cobra"
)

// fakeExecutor returns a canned result and records what it ran.
type fakeExecutor struct {
	result exec.Result
	err    error
	ran    []string
}

func (f *fakeExecutor) Execute(_ context.Context, cmd string, args []string) (exec.Result, error) {
	f.ran = append(append(f.ran, cmd), args...)
	return f.result, f.err
}

func (f *fakeExecutor) Poll(context.Context, string, string, []string) (string, error) {
	return "", nil
}

// useConnection makes connectTarget return ex for one test.
func useConnection(t *testing.T, ex exec.Executor) {
	t.Helper()
	orig := connectTarget
	t.Cleanup(func() { connectTarget = orig })
	connectTarget = func() (*Connection, error) {
		return &Connection{Name: "ap", Via: config.ViaLocal, Executor: ex}, nil
	}
}

// useConfig installs c as the loaded config for one test.
func useConfig(t *testing.T, c *config.Config) {
	t.Helper()
	orig := cfg
	t.Cleanup(func() { cfg = orig })
	cfg = c
}

// testCommand returns a command whose output lands in the returned buffers.
func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	return cmd, &stdout, &stderr
}
