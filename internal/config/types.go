package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Executor backends a target can use.
const (
	ViaLocal = "local"
	ViaSSH   = "ssh"
	ViaUbus  = "ubus"
)

// Config represents the complete .halowdiag.yaml configuration file.
type Config struct {
	Version     int               `yaml:"version" mapstructure:"version"`
	Default     string            `yaml:"default" mapstructure:"default"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" mapstructure:"diagnostics"`
	Targets     map[string]Target `yaml:"targets" mapstructure:"targets"`
	Devices     map[string]Device `yaml:"devices" mapstructure:"devices"`
	Reconnect   ReconnectConfig   `yaml:"reconnect" mapstructure:"reconnect"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// DiagnosticsConfig tunes the ping/iperf3 pipelines.
type DiagnosticsConfig struct {
	// PingWindow is the number of probes kept for statistics and charting.
	PingWindow int `yaml:"ping_window" mapstructure:"ping_window"`

	// BitrateWindow is the number of one-second iperf3 intervals kept.
	BitrateWindow int `yaml:"bitrate_window" mapstructure:"bitrate_window"`

	// PollInterval is the cadence of background command polls.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// HeartbeatAfter is how long an iperf3 server may stay silent before an
	// empty data point is emitted.
	HeartbeatAfter time.Duration `yaml:"heartbeat_after" mapstructure:"heartbeat_after"`

	// PollHelper is the router-side helper that starts and polls background commands.
	PollHelper string `yaml:"poll_helper" mapstructure:"poll_helper"`
}

// Target is a router the diagnostics run on.
type Target struct {
	// Via selects the executor: local, ssh, or ubus.
	Via string `yaml:"via" mapstructure:"via"`

	// SSH connection strings, tried in order until one succeeds.
	// Can be: hostname, user@hostname, or SSH config alias.
	SSH []string `yaml:"ssh" mapstructure:"ssh"`

	// URL is the LuCI host used by the ubus executor.
	URL string `yaml:"url" mapstructure:"url"`

	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`

	// Timeout bounds connection setup and individual RPC requests.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Device is a second HaLow device managed over its ubus JSON-RPC endpoint.
type Device struct {
	URL      string `yaml:"url" mapstructure:"url"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`

	// Proxy relays requests through the local ubus "dongle" object instead
	// of talking HTTP directly.
	Proxy bool `yaml:"proxy" mapstructure:"proxy"`

	// Extra lists additional addresses the device may come back on after apply.
	Extra []string `yaml:"extra" mapstructure:"extra"`

	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ReconnectConfig controls the watchdog that runs after configuration changes.
type ReconnectConfig struct {
	Deadline     time.Duration `yaml:"deadline" mapstructure:"deadline"`
	Grace        time.Duration `yaml:"grace" mapstructure:"grace"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// Sections restricts candidate addresses after apply to these network
	// sections. Empty means lan and privlan.
	Sections []string `yaml:"sections" mapstructure:"sections"`
}

// LogConfig controls the structured log backend.
type LogConfig struct {
	Debug      bool   `yaml:"debug" mapstructure:"debug"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// Default device credentials used by HaLow dongles out of the box.
const (
	DefaultDeviceUser     = "dongle"
	DefaultDevicePassword = "dongle"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Diagnostics: DiagnosticsConfig{
			PingWindow:     60,
			BitrateWindow:  30,
			PollInterval:   500 * time.Millisecond,
			HeartbeatAfter: 1200 * time.Millisecond,
			PollHelper:     "/usr/libexec/command-poll",
		},
		Targets: make(map[string]Target),
		Devices: make(map[string]Device),
		Reconnect: ReconnectConfig{
			Deadline:     60 * time.Second,
			Grace:        10 * time.Second,
			PollInterval: 5 * time.Second,
			ProbeTimeout: time.Second,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
