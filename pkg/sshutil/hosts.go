package sshutil

import (
	"fmt"
	"os"
	"strings"
)

// HostEntry is a concrete Host alias from ~/.ssh/config.
type HostEntry struct {
	Alias    string
	Hostname string
	User     string
	Port     string
}

// Description renders the entry as a login, e.g. root@10.42.0.1:2222.
// Defaults are left out.
func (h HostEntry) Description() string {
	host := h.Hostname
	if host == "" {
		host = h.Alias
	}
	if h.Port != "" && h.Port != "22" {
		host = host + ":" + h.Port
	}
	if h.User != "" {
		host = h.User + "@" + host
	}
	return host
}

// ListHosts returns the Host aliases in home/.ssh/config. A missing file
// is not an error.
func ListHosts(home string) ([]HostEntry, error) {
	if home == "" {
		home = homeDir()
	}
	return ListHostsFile(sshConfigPath(home))
}

// ListHostsFile returns the Host aliases in the config at path, skipping
// wildcard patterns. Entries after a Match block are not seen.
func ListHostsFile(path string) ([]HostEntry, error) {
	cfg, _, err := readSSHConfig(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var entries []HostEntry
	seen := make(map[string]bool)
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if seen[alias] || strings.ContainsAny(alias, "*?!") {
				continue
			}
			seen[alias] = true

			get := func(key string) string {
				v, _ := cfg.Get(alias, key)
				return v
			}
			entries = append(entries, HostEntry{
				Alias:    alias,
				Hostname: get("HostName"),
				User:     get("User"),
				Port:     get("Port"),
			})
		}
	}
	return entries, nil
}
