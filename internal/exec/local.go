package exec

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/logger"
)

// LocalExecutor runs commands on this machine. It is used when halowdiag
// itself runs on the router, or for testing against a workstation.
type LocalExecutor struct {
	// PollHelper defaults to DefaultPollHelper.
	PollHelper string
	Log        logger.Logger
}

// NewLocalExecutor creates a LocalExecutor using the given poll helper.
func NewLocalExecutor(pollHelper string, log logger.Logger) *LocalExecutor {
	if pollHelper == "" {
		pollHelper = DefaultPollHelper
	}
	if log == nil {
		log = logger.Noop()
	}
	return &LocalExecutor{PollHelper: pollHelper, Log: log}
}

// Execute runs cmd without a shell and captures stdout and stderr.
// A non-zero exit is reported in Result, not as an error.
func (e *LocalExecutor) Execute(ctx context.Context, cmd string, args []string) (Result, error) {
	e.logger().Debug("local exec: %s %v", cmd, args)

	command := exec.CommandContext(ctx, cmd, args...)

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	runErr := command.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if runErr != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		// Command ran but returned non-zero
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, errors.WrapWithCode(runErr, errors.ErrExec,
			"Couldn't run '"+cmd+"' locally",
			"Make sure the command exists and is executable.")
	}

	return res, nil
}

// Poll runs the poll helper for a backgrounded command.
func (e *LocalExecutor) Poll(ctx context.Context, cmd, correlationID string, args []string) (string, error) {
	helper := e.helper()
	res, err := e.Execute(ctx, helper, pollArgs(cmd, correlationID, args))
	if err != nil {
		return "", err
	}
	return checkPoll(helper, res)
}

func (e *LocalExecutor) helper() string {
	if e.PollHelper == "" {
		return DefaultPollHelper
	}
	return e.PollHelper
}

func (e *LocalExecutor) logger() logger.Logger {
	if e.Log == nil {
		return logger.Noop()
	}
	return e.Log
}
