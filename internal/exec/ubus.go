package exec

import (
	"context"
	"encoding/json"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/logger"
)

// Caller performs a ubus call. *rpc.Client satisfies it.
type Caller interface {
	Call(ctx context.Context, object, method string, args any) (json.RawMessage, error)
}

// fileExecRequest is the argument object of rpcd's "file exec" method.
type fileExecRequest struct {
	Command string   `json:"command"`
	Params  []string `json:"params,omitempty"`
}

// fileExecReply is what "file exec" returns once the command exits.
type fileExecReply struct {
	Code   int    `json:"code"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// UbusExecutor runs commands through the router's LuCI RPC endpoint. The
// session behind the Caller needs the file exec ACL for each command.
type UbusExecutor struct {
	caller     Caller
	pollHelper string
	log        logger.Logger
}

// NewUbusExecutor creates an executor that calls "file exec" through c.
func NewUbusExecutor(c Caller, pollHelper string, log logger.Logger) *UbusExecutor {
	if pollHelper == "" {
		pollHelper = DefaultPollHelper
	}
	if log == nil {
		log = logger.Noop()
	}
	return &UbusExecutor{caller: c, pollHelper: pollHelper, log: log}
}

// Execute runs cmd via "file exec".
func (e *UbusExecutor) Execute(ctx context.Context, cmd string, args []string) (Result, error) {
	e.log.Debug("ubus file exec: %s %v", cmd, args)

	raw, err := e.caller.Call(ctx, "file", "exec", fileExecRequest{Command: cmd, Params: args})
	if err != nil {
		return Result{}, err
	}

	var reply fileExecReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return Result{}, errors.WrapWithCode(err, errors.ErrRPC,
			"Unexpected reply from file exec for '"+cmd+"'",
			"Check that rpcd-mod-file is installed on the router.")
	}

	return Result{Stdout: reply.Stdout, Stderr: reply.Stderr, ExitCode: reply.Code}, nil
}

// Poll runs the poll helper through "file exec".
func (e *UbusExecutor) Poll(ctx context.Context, cmd, correlationID string, args []string) (string, error) {
	res, err := e.Execute(ctx, e.pollHelper, pollArgs(cmd, correlationID, args))
	if err != nil {
		return "", err
	}
	return checkPoll(e.pollHelper, res)
}
