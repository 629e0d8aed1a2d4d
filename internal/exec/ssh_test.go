package exec

import (
	"context"
	"testing"
	"time"

	"github.com/halowlab/halowdiag/internal/errors"
	sshtest "github.com/halowlab/halowdiag/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandLine(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		args []string
		want string
	}{
		{"no args", "ping", nil, "'ping'"},
		{"simple args", "ping", []string{"-W", "1", "10.42.0.1"}, "'ping' '-W' '1' '10.42.0.1'"},
		{"injection stays quoted", "nslookup", []string{"x; reboot"}, "'nslookup' 'x; reboot'"},
		{"single quote", "echo", []string{"it's"}, `'echo' 'it'\''s'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CommandLine(tt.cmd, tt.args))
		})
	}
}

func TestSSHExecutor_Execute(t *testing.T) {
	mock := sshtest.NewMockClient("halow-ap")
	mock.SetCommandResponse("'ping' '-c' '1' '10.42.0.1'", sshtest.CommandResponse{
		Stdout:   []byte("64 bytes from 10.42.0.1: seq=0 ttl=64 time=1.234 ms\n"),
		ExitCode: 0,
	})

	e := NewSSHExecutor(mock, "", nil)
	res, err := e.Execute(context.Background(), "ping", []string{"-c", "1", "10.42.0.1"})

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "time=1.234 ms")
}

func TestSSHExecutor_NonZeroExit(t *testing.T) {
	mock := sshtest.NewMockClient("halow-ap")
	mock.SetPatternResponse(`^'ping'`, sshtest.CommandResponse{
		Stdout:   []byte("1 packets transmitted, 0 packets received, 100% packet loss\n"),
		ExitCode: 1,
	})

	e := NewSSHExecutor(mock, "", nil)
	res, err := e.Execute(context.Background(), "ping", []string{"10.42.0.9"})

	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Stdout, "100% packet loss")
}

func TestSSHExecutor_Poll(t *testing.T) {
	mock := sshtest.NewMockClient("halow-ap")
	mock.SetCommandResponse("'/usr/libexec/command-poll' 'iperf3' 'id-1' '-s'", sshtest.CommandResponse{
		Stdout: []byte("iperf3: started\n"),
	})

	e := NewSSHExecutor(mock, "", nil)
	out, err := e.Poll(context.Background(), "iperf3", "id-1", []string{"-s"})

	require.NoError(t, err)
	assert.Equal(t, "iperf3: started\n", out)
	assert.Equal(t, []string{"'/usr/libexec/command-poll' 'iperf3' 'id-1' '-s'"}, mock.Commands())
}

func TestSSHExecutor_PollHelperMissing(t *testing.T) {
	mock := sshtest.NewMockClient("halow-ap")

	e := NewSSHExecutor(mock, "/opt/poll", nil)
	_, err := e.Poll(context.Background(), "iperf3", "id-1", nil)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
}

func TestSSHExecutor_Cancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	mock := sshtest.NewMockClient("halow-ap")
	mock.SetPatternResponse(`.*`, sshtest.CommandResponse{Block: block})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	e := NewSSHExecutor(mock, "", nil)
	_, err := e.Execute(ctx, "traceroute", []string{"10.42.0.1"})

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSSHExecutor_Close(t *testing.T) {
	mock := sshtest.NewMockClient("halow-ap")
	e := NewSSHExecutor(mock, "", nil)

	require.NoError(t, e.Close())
	assert.True(t, mock.IsClosed())
}

var _ Executor = (*SSHExecutor)(nil)
