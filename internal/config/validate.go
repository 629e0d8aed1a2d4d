package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/util"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but halowdiag only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade halowdiag or lower the version field.")
	}

	if err := validateDiagnostics(cfg.Diagnostics); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'diagnostics' section in your "+ConfigFileName+".")
	}

	for _, name := range util.SortedKeys(cfg.Targets) {
		if err := validateTarget(name, cfg.Targets[name]); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'targets' section in your "+ConfigFileName+".")
		}
	}

	for _, name := range util.SortedKeys(cfg.Devices) {
		if err := validateDevice(name, cfg.Devices[name]); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'devices' section in your "+ConfigFileName+".")
		}
	}

	if cfg.Default != "" && cfg.Default != ViaLocal {
		if _, ok := cfg.Targets[cfg.Default]; !ok {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Default target '%s' doesn't exist", cfg.Default),
				fmt.Sprintf("Did you rename or remove it? Available targets: %s", strings.Join(util.SortedKeys(cfg.Targets), ", ")))
		}
	}

	if err := validateReconnect(cfg.Reconnect); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'reconnect' section in your "+ConfigFileName+".")
	}

	return nil
}

func validateDiagnostics(d DiagnosticsConfig) error {
	if d.PingWindow <= 0 {
		return fmt.Errorf("diagnostics.ping_window needs to be positive (got %d)", d.PingWindow)
	}
	if d.BitrateWindow <= 0 {
		return fmt.Errorf("diagnostics.bitrate_window needs to be positive (got %d)", d.BitrateWindow)
	}
	if d.PollInterval <= 0 {
		return fmt.Errorf("diagnostics.poll_interval needs to be positive (got %v)", d.PollInterval)
	}
	if d.HeartbeatAfter < 0 {
		return fmt.Errorf("diagnostics.heartbeat_after can't be negative")
	}
	if strings.TrimSpace(d.PollHelper) == "" {
		return fmt.Errorf("diagnostics.poll_helper can't be empty")
	}
	return nil
}

// validateTarget checks a single target configuration.
func validateTarget(name string, t Target) error {
	switch t.Via {
	case ViaLocal:
	case ViaSSH:
		if len(t.SSH) == 0 {
			return fmt.Errorf("target '%s' needs at least one SSH connection (like 'root@10.42.0.1')", name)
		}
		for i, s := range t.SSH {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("target '%s' has an empty SSH entry at position %d", name, i)
			}
		}
	case ViaUbus:
		if err := validateURL(t.URL); err != nil {
			return fmt.Errorf("target '%s' %v", name, err)
		}
	default:
		return fmt.Errorf("target '%s' has via='%s' but it needs to be 'local', 'ssh', or 'ubus'", name, t.Via)
	}
	if t.Timeout < 0 {
		return fmt.Errorf("target '%s' timeout can't be negative", name)
	}
	return nil
}

// validateDevice checks a single remote device configuration.
func validateDevice(name string, d Device) error {
	if err := validateURL(d.URL); err != nil {
		return fmt.Errorf("device '%s' %v", name, err)
	}
	if d.Timeout < 0 {
		return fmt.Errorf("device '%s' timeout can't be negative", name)
	}
	return nil
}

// validateURL accepts either a bare host[:port] or an http(s) URL.
func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("needs a 'url' (like '10.42.0.1' or 'http://halow.lan')")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("has an invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme '%s' isn't supported - use http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url '%s' has no host", raw)
	}
	return nil
}

func validateReconnect(r ReconnectConfig) error {
	if r.Deadline <= 0 {
		return fmt.Errorf("reconnect.deadline needs to be positive (got %v)", r.Deadline)
	}
	if r.Grace < 0 {
		return fmt.Errorf("reconnect.grace can't be negative")
	}
	if r.Grace >= r.Deadline {
		return fmt.Errorf("reconnect.grace (%v) is longer than reconnect.deadline (%v) - nothing would ever be probed", r.Grace, r.Deadline)
	}
	if r.PollInterval <= 0 {
		return fmt.Errorf("reconnect.poll_interval needs to be positive (got %v)", r.PollInterval)
	}
	if r.ProbeTimeout <= 0 {
		return fmt.Errorf("reconnect.probe_timeout needs to be positive (got %v)", r.ProbeTimeout)
	}
	for _, s := range r.Sections {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("reconnect.sections has an empty entry")
		}
	}
	return nil
}

