package exec

import (
	"context"

	"github.com/halowlab/halowdiag/internal/logger"
	"github.com/halowlab/halowdiag/internal/util"
	"github.com/halowlab/halowdiag/pkg/sshutil"
)

// SSHExecutor runs commands on the router over an SSH connection.
// Every argument is shell-quoted, so user input never reaches the remote
// shell unescaped.
type SSHExecutor struct {
	client     sshutil.SSHClient
	pollHelper string
	log        logger.Logger
}

// NewSSHExecutor wraps an established SSH client.
func NewSSHExecutor(client sshutil.SSHClient, pollHelper string, log logger.Logger) *SSHExecutor {
	if pollHelper == "" {
		pollHelper = DefaultPollHelper
	}
	if log == nil {
		log = logger.Noop()
	}
	return &SSHExecutor{client: client, pollHelper: pollHelper, log: log}
}

// Execute runs cmd on the router and captures its output.
func (e *SSHExecutor) Execute(ctx context.Context, cmd string, args []string) (Result, error) {
	line := CommandLine(cmd, args)
	e.log.Debug("ssh exec on %s: %s", e.client.GetHost(), line)

	stdout, stderr, code, err := e.client.ExecContext(ctx, line)
	res := Result{Stdout: string(stdout), Stderr: string(stderr), ExitCode: code}
	if err != nil {
		return res, err
	}
	return res, nil
}

// Poll runs the poll helper on the router.
func (e *SSHExecutor) Poll(ctx context.Context, cmd, correlationID string, args []string) (string, error) {
	res, err := e.Execute(ctx, e.pollHelper, pollArgs(cmd, correlationID, args))
	if err != nil {
		return "", err
	}
	return checkPoll(e.pollHelper, res)
}

// Close closes the underlying SSH connection.
func (e *SSHExecutor) Close() error {
	return e.client.Close()
}

// CommandLine joins cmd and args into a single shell command line with
// every element quoted.
func CommandLine(cmd string, args []string) string {
	return util.ShellJoin(append([]string{cmd}, args...)...)
}
