package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/util"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".halowdiag.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/halowdiag"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix is the prefix for environment overrides, e.g. HALOWDIAG_RECONNECT_DEADLINE.
	EnvPrefix = "HALOWDIAG"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Create "+ConfigFileName+" or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .halowdiag.yaml in current directory
// 3. ~/.config/halowdiag/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if home, _ := os.UserHomeDir(); home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults if not found.
// Diagnostics against the local machine work without any config file.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		v := newViper()
		cfg, err := parseConfig(v, "")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	if cfg.Targets == nil {
		cfg.Targets = make(map[string]Target)
	}
	if cfg.Devices == nil {
		cfg.Devices = make(map[string]Device)
	}

	// Fill per-entry defaults that viper can't express for map values
	for name, target := range cfg.Targets {
		if target.Via == "" {
			target.Via = ViaSSH
			if len(target.SSH) == 0 && target.URL != "" {
				target.Via = ViaUbus
			}
		}
		cfg.Targets[name] = target
	}
	for name, dev := range cfg.Devices {
		if dev.Username == "" {
			dev.Username = DefaultDeviceUser
		}
		if dev.Password == "" {
			dev.Password = DefaultDevicePassword
		}
		cfg.Devices[name] = dev
	}

	cfg.Log.File = ExpandTilde(Expand(cfg.Log.File))

	return cfg, nil
}

// setDefaults registers scalar defaults so AutomaticEnv can override them.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("default", "")
	v.SetDefault("diagnostics.ping_window", def.Diagnostics.PingWindow)
	v.SetDefault("diagnostics.bitrate_window", def.Diagnostics.BitrateWindow)
	v.SetDefault("diagnostics.poll_interval", def.Diagnostics.PollInterval)
	v.SetDefault("diagnostics.heartbeat_after", def.Diagnostics.HeartbeatAfter)
	v.SetDefault("diagnostics.poll_helper", def.Diagnostics.PollHelper)
	v.SetDefault("reconnect.deadline", def.Reconnect.Deadline)
	v.SetDefault("reconnect.grace", def.Reconnect.Grace)
	v.SetDefault("reconnect.poll_interval", def.Reconnect.PollInterval)
	v.SetDefault("reconnect.probe_timeout", def.Reconnect.ProbeTimeout)
	v.SetDefault("log.debug", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
}

// ResolveTarget returns the named target, falling back to the configured
// default. With no name and no default, the local machine is used.
func (c *Config) ResolveTarget(name string) (string, Target, error) {
	if name == "" {
		name = c.Default
	}
	if name == "" {
		if len(c.Targets) == 1 {
			for n, t := range c.Targets {
				return n, t, nil
			}
		}
		return ViaLocal, Target{Via: ViaLocal}, nil
	}

	t, ok := c.Targets[name]
	if !ok {
		if name == ViaLocal {
			return ViaLocal, Target{Via: ViaLocal}, nil
		}
		return "", Target{}, errors.New(errors.ErrConfig,
			"Unknown target '"+name+"'",
			unknownNameSuggestion(name, util.SortedKeys(c.Targets), "targets"))
	}
	return name, t, nil
}

// ResolveDevice returns the named remote device. With an empty name and a
// single configured device, that device is used.
func (c *Config) ResolveDevice(name string) (string, Device, error) {
	if name == "" && len(c.Devices) == 1 {
		for n, d := range c.Devices {
			return n, d, nil
		}
	}
	d, ok := c.Devices[name]
	if !ok {
		msg := "No device selected"
		if name != "" {
			msg = "Unknown device '" + name + "'"
		}
		suggestion := "Add it under 'devices' in " + ConfigFileName + " or pass --device."
		if name != "" {
			suggestion = unknownNameSuggestion(name, util.SortedKeys(c.Devices), "devices")
		}
		return "", Device{}, errors.New(errors.ErrConfig, msg, suggestion)
	}
	return name, d, nil
}

// unknownNameSuggestion proposes close matches for a mistyped name, or
// lists what is available.
func unknownNameSuggestion(name string, known []string, what string) string {
	if similar := util.SuggestSimilar(name, known, 3); len(similar) > 0 {
		return "Did you mean " + strings.Join(similar, " or ") + "?"
	}
	return "Available " + what + ": " + util.JoinOrNone(known)
}
