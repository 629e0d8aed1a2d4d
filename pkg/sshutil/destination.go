package sshutil

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// defaultUser is the login when neither the host string nor ~/.ssh/config
// names one. OpenWrt only ships a root account.
const defaultUser = "root"

// destination is where and as whom Dial logs in.
type destination struct {
	alias        string // host part as given, looked up in ~/.ssh/config
	hostname     string
	port         string
	user         string
	explicitUser bool
	identityFile string
}

func (d destination) address() string {
	return net.JoinHostPort(d.hostname, d.port)
}

// parseHostSpec splits user@host:port. Bare IPv6 addresses, common for
// link-local router addresses, are kept whole; a port needs brackets.
func parseHostSpec(spec string) destination {
	d := destination{port: "22", user: defaultUser}

	if i := strings.LastIndex(spec, "@"); i >= 0 {
		d.user, spec = spec[:i], spec[i+1:]
		d.explicitUser = true
	}

	if host, port, err := net.SplitHostPort(spec); err == nil && isPort(port) {
		spec, d.port = host, port
	}

	d.hostname = strings.TrimSuffix(strings.TrimPrefix(spec, "["), "]")
	d.alias = d.hostname
	return d
}

func isPort(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0 && n < 65536
}

// resolveDestination applies ~/.ssh/config to spec. An explicit user in
// spec wins over the config's User.
func resolveDestination(spec string, opts Options) destination {
	d := parseHostSpec(spec)

	cfg, matchLine, err := readSSHConfig(sshConfigPath(opts.Home))
	if err != nil {
		return d
	}

	found := false
	get := func(key string) string {
		v, _ := cfg.Get(d.alias, key)
		if v != "" {
			found = true
		}
		return v
	}

	if v := get("HostName"); v != "" {
		d.hostname = v
	}
	if v := get("Port"); v != "" && isPort(v) {
		d.port = v
	}
	if v := get("User"); v != "" && !d.explicitUser {
		d.user = v
	}
	if v := get("IdentityFile"); v != "" {
		d.identityFile = expandHome(v, opts.Home)
	}

	if matchLine > 0 && !found && net.ParseIP(d.alias) == nil {
		opts.Warn(fmt.Sprintf(
			"'%s' isn't in ~/.ssh/config before the Match block at line %d; entries after it are ignored",
			d.alias, matchLine))
	}
	return d
}

// readSSHConfig decodes the ssh config at path. ssh_config can't parse
// Match blocks, so the file is cut at the first one and its line number
// returned.
func readSSHConfig(path string) (*ssh_config.Config, int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	matchLine := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			matchLine = i + 1
			lines = lines[:i]
			break
		}
	}

	cfg, err := ssh_config.Decode(bytes.NewReader([]byte(strings.Join(lines, "\n"))))
	if err != nil {
		return nil, matchLine, err
	}
	return cfg, matchLine, nil
}

func sshConfigPath(home string) string {
	return filepath.Join(home, ".ssh", "config")
}

func knownHostsPath(home string) string {
	return filepath.Join(home, ".ssh", "known_hosts")
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
