package sshutil

import (
	"net"
	"os"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// One agent connection serves every dial in the process.
var (
	agentMu   sync.Mutex
	agentConn net.Conn
)

// agentAuth returns an auth method backed by ssh-agent, or nil when no
// agent is running.
func agentAuth() ssh.AuthMethod {
	agentMu.Lock()
	defer agentMu.Unlock()

	if agentConn == nil {
		sock := os.Getenv("SSH_AUTH_SOCK")
		if sock == "" {
			return nil
		}
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return nil
		}
		agentConn = conn
	}
	return ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers)
}

// CloseAgent closes the shared agent connection. Call it once on exit.
func CloseAgent() {
	agentMu.Lock()
	defer agentMu.Unlock()
	if agentConn != nil {
		agentConn.Close()
		agentConn = nil
	}
}
