// Package reconnect waits for a device to come back after a configuration
// change was applied, trying every address it might reappear on.
package reconnect

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Change is one pending UCI change: command, section, option, value...
// List values are flattened into the trailing elements.
type Change []string

// UnmarshalJSON accepts the mixed arrays returned by "uci changes", where
// a list option's value is itself an array.
func (c *Change) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Change, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var list []string
		if err := json.Unmarshal(item, &list); err == nil {
			out = append(out, list...)
			continue
		}
		out = append(out, strings.TrimSpace(string(item)))
	}
	*c = out
	return nil
}

// Command returns the change verb, e.g. "set" or "add".
func (c Change) Command() string { return c.at(0) }

// Section returns the section the change applies to.
func (c Change) Section() string { return c.at(1) }

// Option returns the option name.
func (c Change) Option() string { return c.at(2) }

// Values returns the new value(s).
func (c Change) Values() []string {
	if len(c) < 4 {
		return nil
	}
	return c[3:]
}

func (c Change) at(i int) string {
	if i < len(c) {
		return c[i]
	}
	return ""
}

// ChangeSet maps a UCI config name to its pending changes,
// e.g. {"network": [["set", "lan", "ipaddr", "10.42.0.1"]]}.
type ChangeSet map[string][]Change

// Candidates lists every address the device may answer on after the
// changes are applied: current first, then extra, then each new
// network ipaddr. When sections are given, only those sections count.
// Duplicates and empty entries are dropped.
func Candidates(changes ChangeSet, current string, extra []string, sections ...string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}

	add(current)
	for _, e := range extra {
		add(e)
	}

	allowed := make(map[string]bool, len(sections))
	for _, s := range sections {
		allowed[s] = true
	}

	for _, c := range changes["network"] {
		if c.Command() != "set" || c.Option() != "ipaddr" {
			continue
		}
		if len(allowed) > 0 && !allowed[c.Section()] {
			continue
		}
		for _, v := range c.Values() {
			add(stripPrefixLen(v))
		}
	}

	return out
}

// stripPrefixLen turns "10.42.0.1/24" into "10.42.0.1".
func stripPrefixLen(addr string) string {
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		return addr[:i]
	}
	return addr
}

// String renders a change the way "uci changes" prints it.
func (c Change) String() string {
	switch {
	case len(c) >= 4:
		return fmt.Sprintf("%s %s.%s=%s", c.Command(), c.Section(), c.Option(), strings.Join(c.Values(), " "))
	case len(c) == 3:
		return fmt.Sprintf("%s %s.%s", c.Command(), c.Section(), c.Option())
	default:
		return strings.Join(c, " ")
	}
}
