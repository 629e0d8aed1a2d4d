package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSHConfig(t *testing.T, content string) string {
	t.Helper()
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".ssh"), 0700))
	require.NoError(t, os.WriteFile(sshConfigPath(home), []byte(content), 0600))
	return home
}

func TestParseHostSpec(t *testing.T) {
	tests := []struct {
		spec     string
		hostname string
		port     string
		user     string
		explicit bool
	}{
		{"10.42.0.1", "10.42.0.1", "22", "root", false},
		{"admin@10.42.0.1", "10.42.0.1", "22", "admin", true},
		{"10.42.0.1:2222", "10.42.0.1", "2222", "root", false},
		{"admin@halow-ap:2200", "halow-ap", "2200", "admin", true},
		{"fe80::1", "fe80::1", "22", "root", false},
		{"root@[fe80::1]:2222", "fe80::1", "2222", "root", true},
		{"[fd00::1]", "fd00::1", "22", "root", false},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			d := parseHostSpec(tt.spec)
			assert.Equal(t, tt.hostname, d.hostname)
			assert.Equal(t, tt.port, d.port)
			assert.Equal(t, tt.user, d.user)
			assert.Equal(t, tt.explicit, d.explicitUser)
		})
	}
}

func TestDestination_Address(t *testing.T) {
	assert.Equal(t, "10.42.0.1:22", parseHostSpec("10.42.0.1").address())
	assert.Equal(t, "[fe80::1]:2222", parseHostSpec("[fe80::1]:2222").address())
}

func TestResolveDestination_FromConfig(t *testing.T) {
	home := writeSSHConfig(t, `
Host halow-ap
    HostName 10.42.0.1
    Port 2222
    User admin
    IdentityFile ~/.ssh/halow
`)

	d := resolveDestination("halow-ap", Options{Home: home}.withDefaults())
	assert.Equal(t, "10.42.0.1", d.hostname)
	assert.Equal(t, "2222", d.port)
	assert.Equal(t, "admin", d.user)
	assert.Equal(t, filepath.Join(home, ".ssh", "halow"), d.identityFile)
	assert.Equal(t, "10.42.0.1:2222", d.address())
}

func TestResolveDestination_ExplicitUserWins(t *testing.T) {
	home := writeSSHConfig(t, "Host halow-ap\n    HostName 10.42.0.1\n    User admin\n")

	d := resolveDestination("root@halow-ap", Options{Home: home}.withDefaults())
	assert.Equal(t, "root", d.user)
	assert.Equal(t, "10.42.0.1", d.hostname)
}

func TestResolveDestination_NoConfig(t *testing.T) {
	d := resolveDestination("10.42.0.1", Options{Home: t.TempDir()}.withDefaults())
	assert.Equal(t, "root", d.user)
	assert.Equal(t, "10.42.0.1:22", d.address())
	assert.Empty(t, d.identityFile)
}

func TestResolveDestination_WarnsWhenHostHiddenByMatch(t *testing.T) {
	home := writeSSHConfig(t, `
Host halow-ap
    HostName 10.42.0.1

Match host *.lan
    User admin

Host halow-sta
    HostName 10.42.0.2
`)
	var warnings []string
	opts := Options{Home: home, Warn: func(msg string) { warnings = append(warnings, msg) }}.withDefaults()

	d := resolveDestination("halow-ap", opts)
	assert.Equal(t, "10.42.0.1", d.hostname)
	assert.Empty(t, warnings)

	d = resolveDestination("halow-sta", opts)
	assert.Equal(t, "halow-sta", d.hostname)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Match block at line 5")
}

func TestExpandHome(t *testing.T) {
	assert.Equal(t, "/home/op", expandHome("~", "/home/op"))
	assert.Equal(t, "/home/op/.ssh/halow", expandHome("~/.ssh/halow", "/home/op"))
	assert.Equal(t, "/etc/keys/halow", expandHome("/etc/keys/halow", "/home/op"))
}
