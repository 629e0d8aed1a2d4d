package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/halowlab/halowdiag/internal/config"
	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/logger"
	"github.com/halowlab/halowdiag/internal/util"
	"github.com/halowlab/halowdiag/pkg/sshutil"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile    string
	viaFlag    string
	targetFlag string
	deviceFlag string
	plainFlag  bool
	debugFlag  bool
)

// Loaded by the root PersistentPreRunE.
var (
	cfg     *config.Config
	cfgPath string
	log     logger.Logger = logger.Noop()
)

var rootCmd = &cobra.Command{
	Use:   "halowdiag",
	Short: "Diagnostics for HaLow access points and mesh controllers",
	Long: `halowdiag runs ping, iperf3 and friends on an OpenWrt HaLow router and
charts the results live in your terminal. It also manages a second HaLow
device over its ubus endpoint and waits for it to come back after a
configuration change.

Targets come from .halowdiag.yaml (or ~/.config/halowdiag/config.yaml):

  targets:
    ap:
      via: ssh
      ssh: [root@10.42.0.1]
    dongle:
      via: ubus
      url: 10.41.0.1`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .halowdiag.yaml, then ~/.config/halowdiag/config.yaml)")
	pf.StringVar(&viaFlag, "via", "", "override the target's executor: local, ssh or ubus")
	pf.StringVar(&targetFlag, "target", "", "target router name from config")
	pf.StringVar(&deviceFlag, "device", "", "remote device name from config")
	pf.BoolVar(&plainFlag, "plain", false, "print lines instead of drawing charts")
	pf.BoolVar(&debugFlag, "debug", false, "enable debug logging")
	pf.BoolVar(&machineMode, "json", false, "print results as JSON (targets, device, reconnect, doctor)")

	_ = rootCmd.RegisterFlagCompletionFunc("via", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{config.ViaLocal, config.ViaSSH, config.ViaUbus}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("target", completeConfigNames(func(c *config.Config) []string {
		return util.SortedKeys(c.Targets)
	}))
	_ = rootCmd.RegisterFlagCompletionFunc("device", completeConfigNames(func(c *config.Config) []string {
		return util.SortedKeys(c.Devices)
	}))
}

// loadConfig reads the config file and sets up logging from it.
func loadConfig() error {
	loaded, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}
	if err := config.Validate(loaded); err != nil {
		return err
	}
	cfg, cfgPath = loaded, path

	log = logger.Init(logger.Options{
		Debug:      debugFlag || cfg.Log.Debug,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	if path != "" {
		log.Debug("config loaded from %s", path)
	}
	return nil
}

func completeConfigNames(names func(*config.Config) []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		c, _, err := config.LoadOrDefault(cfgFile)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return names(c), cobra.ShellCompDirectiveNoFileComp
	}
}

// signalContext is cancelled on SIGINT or SIGTERM, so plain-mode runs stop
// their remote command the same way the dashboard's q key does.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command and exits with the right status.
func Execute() {
	defer sshutil.CloseAgent()

	err := rootCmd.Execute()
	if err == nil {
		return
	}

	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}

	if machineMode {
		_ = WriteJSONFromError(os.Stdout, err)
		os.Exit(1)
	}

	if isUnknownCommandError(err) {
		fmt.Fprintln(os.Stderr, unknownCommandMessage(err))
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, renderError(err))
	os.Exit(1)
}

// renderError formats err for the terminal. Structured errors carry their
// own layout; anything else gets the same leading mark.
func renderError(err error) string {
	var hdErr *errors.Error
	if stderrors.As(err, &hdErr) {
		return strings.TrimRight(hdErr.Error(), "\n")
	}
	return "✗ " + err.Error()
}

// isUnknownCommandError reports whether cobra rejected the command line
// itself rather than a command failing.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "halowdiag"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

// unknownCommandMessage suggests close command names for a typo.
func unknownCommandMessage(err error) string {
	name := extractUnknownCommand(err)
	if name == "" || !strings.HasPrefix(err.Error(), "unknown command") {
		return "✗ " + err.Error() + "\n\n  Run 'halowdiag --help' for usage."
	}

	var names []string
	for _, c := range rootCmd.Commands() {
		if !c.Hidden {
			names = append(names, c.Name())
		}
	}
	msg := fmt.Sprintf("✗ Unknown command '%s'", name)
	if similar := util.SuggestSimilar(name, names, 3); len(similar) > 0 {
		return msg + "\n\n  Did you mean " + strings.Join(similar, " or ") + "?"
	}
	return msg + "\n\n  Run 'halowdiag --help' for usage."
}
