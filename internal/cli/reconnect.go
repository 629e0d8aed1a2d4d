package cli

import (
	"fmt"

	"github.com/halowlab/halowdiag/internal/config"
	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/reconnect"
	"github.com/halowlab/halowdiag/internal/ui"
	"github.com/spf13/cobra"
)

var reconnectFlags struct {
	probe    string
	username string
	password string
	https    bool
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect <addr>...",
	Short: "Wait for a device to answer on any of several addresses",
	Long: `Poll every address at once until one answers or the reconnect deadline
passes. This is the wait that 'device apply --wait' runs, usable on its own
after changing a device's network settings by other means.

With --probe http any HTTP reply counts. With --probe rpc the device must
also accept a ubus login, using the --device credentials unless
--username and --password are given.

Examples:
  halowdiag reconnect 10.41.0.1 10.42.0.50
  halowdiag reconnect --probe rpc --device dongle 192.168.12.1`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prober, err := reconnectProber()
		if err != nil {
			return err
		}

		cd := newCountdown(cmd.ErrOrStderr(), "Waiting for "+args[0])
		res, err := reconnect.New(prober, watchdogOptions(cd.tick)).Run(args)
		cd.done(err == nil)
		if err != nil {
			return err
		}
		if machineMode {
			return WriteJSONSuccess(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s answered\n", ui.SymbolSuccess, res.Address)
		return nil
	},
}

func init() {
	f := reconnectCmd.Flags()
	f.StringVar(&reconnectFlags.probe, "probe", "http", "how to check an address: http or rpc")
	f.StringVar(&reconnectFlags.username, "username", "", "ubus login for --probe rpc")
	f.StringVar(&reconnectFlags.password, "password", "", "ubus password for --probe rpc")
	f.BoolVar(&reconnectFlags.https, "https", false, "probe over HTTPS with --probe http")
	_ = reconnectCmd.RegisterFlagCompletionFunc("probe", cobra.FixedCompletions([]string{"http", "rpc"}, cobra.ShellCompDirectiveNoFileComp))

	rootCmd.AddCommand(reconnectCmd)
}

func reconnectProber() (reconnect.Prober, error) {
	switch reconnectFlags.probe {
	case "http":
		p := &reconnect.HTTPProber{}
		if reconnectFlags.https {
			p.Scheme = "https"
		}
		return p, nil

	case "rpc":
		user, password := reconnectFlags.username, reconnectFlags.password
		if user == "" {
			user, password = config.DefaultDeviceUser, config.DefaultDevicePassword
			if _, d, err := cfg.ResolveDevice(deviceFlag); err == nil && d.Username != "" {
				user, password = d.Username, d.Password
			}
		}
		return &reconnect.RPCProber{Username: user, Password: password}, nil

	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown probe '%s'", reconnectFlags.probe),
			"Use --probe http or --probe rpc.")
	}
}
