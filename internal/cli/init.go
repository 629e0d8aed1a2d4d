package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/halowlab/halowdiag/internal/config"
	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/logger"
	"github.com/halowlab/halowdiag/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Name           string // Target name
	Via            string // ssh or ubus
	Address        string // SSH host/alias, or LuCI address for ubus
	DeviceURL      string // Optional remote device endpoint
	Dir            string // Where to write the file (default: current directory)
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts
	SkipTest       bool   // Don't connect before saving
}

var initOpts InitOptions

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .halowdiag.yaml config",
	Long: `Create a .halowdiag.yaml in the current directory with one target router
and, optionally, a remote device. The target is tried before the file is
written.

Examples:
  halowdiag init
  halowdiag init --non-interactive --name ap --ssh root@10.42.0.1
  halowdiag init --non-interactive --name dongle --ubus 10.41.0.1 --device-url 10.41.0.2`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := initOpts
		if ssh, _ := cmd.Flags().GetString("ssh"); ssh != "" {
			opts.Via, opts.Address = config.ViaSSH, ssh
		}
		if url, _ := cmd.Flags().GetString("ubus"); url != "" {
			opts.Via, opts.Address = config.ViaUbus, url
		}
		return Init(cmd.OutOrStdout(), opts)
	},
}

func init() {
	f := initCmd.Flags()
	f.StringVar(&initOpts.Name, "name", "", "target name (default: ap)")
	f.String("ssh", "", "SSH host, user@host or alias of the router")
	f.String("ubus", "", "LuCI address of the router, for via: ubus")
	f.StringVar(&initOpts.DeviceURL, "device-url", "", "ubus address of a remote HaLow device")
	f.BoolVar(&initOpts.Overwrite, "force", false, "overwrite an existing config")
	f.BoolVar(&initOpts.NonInteractive, "non-interactive", false, "don't prompt")
	f.BoolVar(&initOpts.SkipTest, "skip-test", false, "don't try the target before saving")
	initCmd.MarkFlagsMutuallyExclusive("ssh", "ubus")
	rootCmd.AddCommand(initCmd)
}

// starterConfig is the subset of Config that init writes. Everything else
// keeps its default.
type starterConfig struct {
	Version int                      `yaml:"version"`
	Default string                   `yaml:"default"`
	Targets map[string]starterTarget `yaml:"targets"`
	Devices map[string]starterDevice `yaml:"devices,omitempty"`
}

type starterTarget struct {
	Via string   `yaml:"via"`
	SSH []string `yaml:"ssh,omitempty"`
	URL string   `yaml:"url,omitempty"`
}

type starterDevice struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Init creates a new .halowdiag.yaml configuration file.
func Init(w io.Writer, opts InitOptions) error {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	configPath := filepath.Join(dir, config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(w, "Cancelled.")
			return nil
		}
	}

	if opts.Name == "" {
		opts.Name = "ap"
	}
	if opts.Via == "" {
		opts.Via = config.ViaSSH
	}

	if opts.NonInteractive {
		if opts.Address == "" {
			return errors.New(errors.ErrConfig,
				"A router address is required in non-interactive mode",
				"Pass --ssh root@<router> or --ubus <router>")
		}
	} else if err := promptInit(&opts); err != nil {
		return err
	}

	target := starterTarget{Via: opts.Via}
	if opts.Via == config.ViaUbus {
		target.URL = opts.Address
	} else {
		target.SSH = []string{opts.Address}
	}

	if !opts.SkipTest {
		if err := testInitTarget(w, opts, target); err != nil {
			return err
		}
	}

	starter := starterConfig{
		Version: config.CurrentConfigVersion,
		Default: opts.Name,
		Targets: map[string]starterTarget{opts.Name: target},
	}
	if opts.DeviceURL != "" {
		starter.Devices = map[string]starterDevice{"dongle": {
			URL:      opts.DeviceURL,
			Username: config.DefaultDeviceUser,
			Password: config.DefaultDevicePassword,
		}}
	}

	data, err := yaml.Marshal(starter)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}

	header := `# halowdiag configuration
# Run 'halowdiag ping <host>' to ping from the default target,
# 'halowdiag doctor' to check the setup.

`
	if err := os.WriteFile(configPath, []byte(header+string(data)), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Fprintf(w, "%s Created %s\n\n", ui.SymbolSuccess, configPath)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  halowdiag doctor          - Check the setup")
	fmt.Fprintln(w, "  halowdiag ping <host>     - Ping from the router")
	fmt.Fprintln(w, "  halowdiag iperf3 client   - Measure throughput")
	return nil
}

func promptInit(opts *InitOptions) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Target name").
				Description("A short name for the router").
				Placeholder("ap").
				Value(&opts.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					if strings.ContainsAny(s, " \t\n") {
						return fmt.Errorf("name cannot contain whitespace")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Connect with").
				Options(
					huh.NewOption("SSH", config.ViaSSH),
					huh.NewOption("LuCI ubus (HTTP)", config.ViaUbus),
				).
				Value(&opts.Via),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Router address").
				Description("user@host or SSH alias for SSH, LuCI address for ubus").
				Placeholder("root@10.42.0.1").
				Value(&opts.Address).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("address is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Remote HaLow device (optional)").
				Description("ubus address of a second device to manage").
				Placeholder("10.41.0.2 (leave empty to skip)").
				Value(&opts.DeviceURL),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}
	opts.Address = strings.TrimSpace(opts.Address)
	opts.DeviceURL = strings.TrimSpace(opts.DeviceURL)
	return nil
}

// testInitTarget runs uname on the new target. A failure can still be
// saved when prompting.
func testInitTarget(w io.Writer, opts InitOptions, st starterTarget) error {
	spinner := ui.NewSpinner(w, "Testing connection to "+opts.Address)
	spinner.Start()

	err := tryTarget(opts.Name, config.Target{Via: st.Via, SSH: st.SSH, URL: st.URL})
	if err == nil {
		spinner.Success()
		return nil
	}
	spinner.Fail()

	failed := errors.WrapWithCode(err, errors.ErrTransport,
		fmt.Sprintf("Connection to '%s' failed", opts.Address),
		"Check the router is reachable, or pass --skip-test to save anyway")
	if opts.NonInteractive {
		return failed
	}

	var saveAnyway bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save config anyway? (You can fix the connection later)").
				Value(&saveAnyway),
		),
	)
	if formErr := form.Run(); formErr != nil || !saveAnyway {
		return failed
	}
	return nil
}

// tryTarget opens t and runs uname on it. Replaced in tests.
var tryTarget = func(name string, t config.Target) error {
	conn, err := openTarget(name, t, config.DefaultConfig().Diagnostics.PollHelper, logger.Named(log, name))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signalContext()
	defer stop()
	_, err = conn.Executor.Execute(ctx, "uname", []string{"-n"})
	return err
}

