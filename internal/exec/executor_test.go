package exec

import (
	"testing"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCommandNotFound(t *testing.T) {
	tests := []struct {
		name      string
		stderr    string
		exitCode  int
		wantCmd   string
		wantFound bool
	}{
		{
			name:      "bash command not found",
			stderr:    "bash: iperf3: command not found",
			exitCode:  127,
			wantCmd:   "iperf3",
			wantFound: true,
		},
		{
			name:      "zsh command not found",
			stderr:    "zsh: command not found: arp-scan",
			exitCode:  127,
			wantCmd:   "arp-scan",
			wantFound: true,
		},
		{
			name:      "dash not found",
			stderr:    "sh: 1: traceroute6: not found",
			exitCode:  127,
			wantCmd:   "traceroute6",
			wantFound: true,
		},
		{
			name:      "busybox ash not found",
			stderr:    "-ash: iperf3: not found",
			exitCode:  127,
			wantCmd:   "iperf3",
			wantFound: true,
		},
		{
			name:      "plain sh not found",
			stderr:    "sh: nslookup: not found",
			exitCode:  127,
			wantCmd:   "nslookup",
			wantFound: true,
		},
		{
			name:      "exit code 127 no pattern match",
			stderr:    "some other error message",
			exitCode:  127,
			wantCmd:   "",
			wantFound: true,
		},
		{
			name:      "ping loss is not command not found",
			stderr:    "",
			exitCode:  1,
			wantFound: false,
		},
		{
			name:      "success exit code",
			exitCode:  0,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, found := IsCommandNotFound(tt.stderr, tt.exitCode)
			assert.Equal(t, tt.wantFound, found, "found mismatch")
			if tt.wantFound && tt.wantCmd != "" {
				assert.Equal(t, tt.wantCmd, cmd, "command name mismatch")
			}
		})
	}
}

func TestIsDependencyNotFound(t *testing.T) {
	tests := []struct {
		name      string
		stderr    string
		wantCmd   string
		wantFound bool
	}{
		{
			name:      "poll helper can't find iperf3",
			stderr:    "/usr/libexec/command-poll: line 12: iperf3: not found",
			wantCmd:   "iperf3",
			wantFound: true,
		},
		{
			name:      "/bin/sh can't find arp-scan",
			stderr:    "/bin/sh: arp-scan: not found",
			wantCmd:   "arp-scan",
			wantFound: true,
		},
		{
			name:      "env shebang",
			stderr:    "env: python3: No such file or directory",
			wantCmd:   "python3",
			wantFound: true,
		},
		{
			name:      "iperf3 connection refused",
			stderr:    "iperf3: error - unable to connect to server: Connection refused",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, found := IsDependencyNotFound(tt.stderr)
			assert.Equal(t, tt.wantFound, found, "found mismatch")
			if tt.wantFound {
				assert.Equal(t, tt.wantCmd, cmd, "command name mismatch")
			}
		})
	}
}

func TestHandleExecError_CommandNotFound(t *testing.T) {
	err := HandleExecError("iperf3 -c 10.42.0.1", "sh: iperf3: not found", 127)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
	assert.Contains(t, err.Error(), "'iperf3' not found on the target")
	assert.Contains(t, err.Error(), "opkg install iperf3")
}

func TestHandleExecError_NotCommandNotFound(t *testing.T) {
	err := HandleExecError("ping", "", 1)
	assert.Nil(t, err)
}

func TestHandleExecError_ExtractsCommandFromInput(t *testing.T) {
	err := HandleExecError("arp-scan -l -I wlan0", "some error", 127)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "'arp-scan' not found on the target")
}

func TestPollArgs(t *testing.T) {
	args := []string{"-s", "-f", "k"}
	got := pollArgs("iperf3", "abc", args)

	assert.Equal(t, []string{"iperf3", "abc", "-s", "-f", "k"}, got)
	assert.Equal(t, []string{"-s", "-f", "k"}, args, "input not modified")
}

func TestCheckPoll(t *testing.T) {
	out, err := checkPoll(DefaultPollHelper, Result{Stdout: "iperf3: started\n", ExitCode: 1})
	require.NoError(t, err)
	assert.Equal(t, "iperf3: started\n", out)

	_, err = checkPoll(DefaultPollHelper, Result{Stderr: "sh: /usr/libexec/command-poll: not found", ExitCode: 127})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
}
