// Package testing provides an in-memory SSHClient for tests of router-side
// executors.
package testing

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/halowlab/halowdiag/pkg/sshutil"
)

var _ sshutil.SSHClient = (*MockClient)(nil)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error

	// Block, when set, holds the call until it is closed or ctx is done.
	Block <-chan struct{}
}

type patternResponse struct {
	pattern *regexp.Regexp
	resp    CommandResponse
}

// MockClient simulates an SSH connection for testing.
// Responses are matched by exact command first, then by regex in
// registration order. Unmatched commands exit 127 like a missing binary.
type MockClient struct {
	mu       sync.Mutex
	host     string
	address  string
	closed   bool
	exact    map[string]CommandResponse
	patterns []patternResponse
	commands []string
}

// NewMockClient creates a new mock SSH client.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:    host,
		address: host + ":22",
		exact:   make(map[string]CommandResponse),
	}
}

// SetCommandResponse registers a canned response for an exact command.
func (m *MockClient) SetCommandResponse(cmd string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exact[cmd] = resp
}

// SetPatternResponse registers a canned response for commands matching a regex.
func (m *MockClient) SetPatternResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, patternResponse{pattern: regexp.MustCompile(pattern), resp: resp})
}

// Commands returns every command executed so far, in order.
func (m *MockClient) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.commands))
	copy(out, m.commands)
	return out
}

// ExecContext returns the registered response for cmd.
func (m *MockClient) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	resp, err := m.lookup(cmd)
	if err != nil {
		return nil, nil, -1, err
	}

	if resp.Block != nil {
		select {
		case <-resp.Block:
		case <-ctx.Done():
			return nil, nil, -1, ctx.Err()
		}
	}

	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
}

func (m *MockClient) lookup(cmd string) (CommandResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return CommandResponse{}, errors.New("connection closed")
	}
	m.commands = append(m.commands, cmd)

	if resp, ok := m.exact[cmd]; ok {
		return resp, nil
	}
	for _, p := range m.patterns {
		if p.pattern.MatchString(cmd) {
			return p.resp, nil
		}
	}
	return CommandResponse{
		Stderr:   []byte("sh: " + cmd + ": not found\n"),
		ExitCode: 127,
	}, nil
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}
