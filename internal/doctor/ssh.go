package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/halowlab/halowdiag/pkg/sshutil"
	"golang.org/x/crypto/ssh/agent"
)

// SSHKeyCheck verifies an SSH key pair exists.
type SSHKeyCheck struct {
	// Home defaults to the user's home directory.
	Home string
}

func (c *SSHKeyCheck) Name() string     { return "ssh_key" }
func (c *SSHKeyCheck) Category() string { return CategorySSH }

func (c *SSHKeyCheck) Run(context.Context) CheckResult {
	home := c.Home
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusFail,
				Message:    "Cannot determine home directory",
				Suggestion: "Check the HOME environment variable",
			}
		}
	}

	for _, name := range sshutil.DefaultKeyNames {
		key := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(key); err != nil {
			continue
		}
		if _, err := os.Stat(key + ".pub"); err != nil {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusWarn,
				Message:    fmt.Sprintf("SSH key ~/.ssh/%s has no public half", name),
				Suggestion: fmt.Sprintf("Recreate it with: ssh-keygen -y -f ~/.ssh/%s > ~/.ssh/%s.pub", name, name),
			}
		}
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("SSH key found: ~/.ssh/%s", name),
		}
	}

	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    "No SSH key found",
		Suggestion: "Generate one with: ssh-keygen -t ed25519\nThen copy it to the router: ssh-copy-id root@<router>",
	}
}

// SSHAgentCheck verifies the SSH agent is reachable and holds keys.
type SSHAgentCheck struct {
	// Socket defaults to $SSH_AUTH_SOCK.
	Socket string
}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return CategorySSH }

func (c *SSHAgentCheck) Run(ctx context.Context) CheckResult {
	socket := c.Socket
	if socket == "" {
		socket = os.Getenv("SSH_AUTH_SOCK")
	}
	if socket == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Start it with: eval $(ssh-agent) && ssh-add",
		}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent socket not accessible",
			Suggestion: "Start it with: eval $(ssh-agent) && ssh-add",
		}
	}
	defer conn.Close()

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Cannot query SSH agent: %v", err),
			Suggestion: "Check the agent with: ssh-add -l",
		}
	}
	if len(keys) == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent running but no keys loaded",
			Suggestion: "Add a key with: ssh-add",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", len(keys), pluralize(len(keys))),
	}
}

// NewSSHChecks creates the local SSH setup checks.
func NewSSHChecks() []Check {
	return []Check{
		&SSHKeyCheck{},
		&SSHAgentCheck{},
	}
}
