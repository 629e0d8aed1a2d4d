package doctor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/halowlab/halowdiag/internal/config"
)

// ConfigCheck reports whether a config file was found and loaded cleanly.
type ConfigCheck struct {
	Path string // empty when no file was found
	Err  error  // load or validation error, if any
}

func (c *ConfigCheck) Name() string     { return "config_file" }
func (c *ConfigCheck) Category() string { return CategoryConfig }

func (c *ConfigCheck) Run(context.Context) CheckResult {
	if c.Err != nil {
		msg, suggestion := describe(c.Err, "Check the YAML syntax in "+config.ConfigFileName)
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    msg,
			Suggestion: suggestion,
		}
	}

	if c.Path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No config file found, using defaults",
			Suggestion: "Run 'halowdiag init' to create " + config.ConfigFileName,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config file: %s", filepath.Base(c.Path)),
	}
}

// InventoryCheck counts the configured targets and devices.
type InventoryCheck struct {
	Config *config.Config
}

func (c *InventoryCheck) Name() string     { return "config_inventory" }
func (c *InventoryCheck) Category() string { return CategoryConfig }

func (c *InventoryCheck) Run(context.Context) CheckResult {
	targets, devices := len(c.Config.Targets), len(c.Config.Devices)
	if targets == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No targets configured, diagnostics run on this machine",
			Suggestion: "Add a router under 'targets:' to run diagnostics on it",
		}
	}

	return CheckResult{
		Name:   c.Name(),
		Status: StatusPass,
		Message: fmt.Sprintf("%d target%s, %d device%s configured",
			targets, pluralize(targets), devices, pluralize(devices)),
	}
}

// NewConfigChecks creates the config checks for a load of path that
// returned loadErr.
func NewConfigChecks(path string, cfg *config.Config, loadErr error) []Check {
	return []Check{
		&ConfigCheck{Path: path, Err: loadErr},
		&InventoryCheck{Config: cfg},
	}
}
