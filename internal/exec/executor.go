// Package exec runs diagnostic commands on a router, either on this machine,
// over SSH, or through the LuCI ubus "file exec" call.
package exec

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/halowlab/halowdiag/internal/errors"
)

// DefaultPollHelper is the router-side helper that backgrounds a command
// and returns whatever output it produced since the previous poll.
const DefaultPollHelper = "/usr/libexec/command-poll"

// Result is the captured outcome of a single command run.
// A non-zero ExitCode is not an error: ping reports loss that way.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs commands on a target.
type Executor interface {
	// Execute runs cmd to completion and captures its output.
	Execute(ctx context.Context, cmd string, args []string) (Result, error)

	// Poll asks the poll helper for new output of the backgrounded command
	// identified by correlationID, starting it on first use.
	Poll(ctx context.Context, cmd, correlationID string, args []string) (string, error)
}

// pollArgs builds the helper's argument list: <cmd> <id> <args...>.
func pollArgs(cmd, correlationID string, args []string) []string {
	out := make([]string, 0, len(args)+2)
	out = append(out, cmd, correlationID)
	return append(out, args...)
}

// checkPoll turns a failed poll helper run into an error. Other non-zero
// exits still carry output from the backgrounded command and are passed on.
func checkPoll(helper string, res Result) (string, error) {
	if err := HandleExecError(helper, res.Stderr, res.ExitCode); err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// commandNotFoundPatterns are regex patterns to detect "command not found" errors
// from busybox ash and other shells. These require exit code 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bash: (\S+): command not found`),
	regexp.MustCompile(`(?i)zsh: command not found: (\S+)`),
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)-ash: (\S+): not found`),
	regexp.MustCompile(`(?i)(\S+): not found`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
}

// dependencyNotFoundPatterns detect when a wrapper script fails because the
// tool it launches isn't installed. These can have various exit codes.
var dependencyNotFoundPatterns = []*regexp.Regexp{
	// /usr/libexec/command-poll: line 12: iperf3: not found
	regexp.MustCompile(`(?i)line \d+: (\S+): not found`),
	// /bin/sh: arp-scan: not found
	regexp.MustCompile(`(?i)/bin/sh: (\S+): not found`),
	// env: iperf3: No such file or directory
	regexp.MustCompile(`(?i)env: (\S+): No such file or directory`),
}

// IsCommandNotFound checks if the error output indicates a missing command.
// Returns the command name (if extractable) and whether it's a command-not-found error.
func IsCommandNotFound(stderr string, exitCode int) (string, bool) {
	// Exit code 127 is the standard for command not found
	if exitCode != 127 {
		return "", false
	}

	for _, pattern := range commandNotFoundPatterns {
		if matches := pattern.FindStringSubmatch(stderr); len(matches) > 1 {
			return matches[1], true
		}
	}

	return "", true
}

// IsDependencyNotFound checks if a helper failed because the tool it runs is missing.
func IsDependencyNotFound(stderr string) (string, bool) {
	for _, pattern := range dependencyNotFoundPatterns {
		if matches := pattern.FindStringSubmatch(stderr); len(matches) > 1 {
			return matches[1], true
		}
	}
	return "", false
}

// HandleExecError wraps execution errors with helpful suggestions.
// It returns nil unless the output shows a command is missing on the router.
func HandleExecError(cmd string, stderr string, exitCode int) error {
	cmdName, notFound := IsCommandNotFound(stderr, exitCode)

	if !notFound {
		cmdName, notFound = IsDependencyNotFound(stderr)
	}

	if !notFound {
		return nil
	}

	displayCmd := cmdName
	if displayCmd == "" {
		parts := strings.Fields(cmd)
		if len(parts) > 0 {
			displayCmd = parts[0]
		} else {
			displayCmd = "command"
		}
	}

	suggestion := fmt.Sprintf(`'%s' isn't installed on the router.

Fixes:

1. Install it with opkg:
   opkg update && opkg install %s

2. If it is installed, check the PATH of non-interactive shells:
   ssh root@your-router "which %s"`, displayCmd, displayCmd, displayCmd)

	return errors.New(errors.ErrExec,
		fmt.Sprintf("'%s' not found on the target", displayCmd),
		suggestion)
}
