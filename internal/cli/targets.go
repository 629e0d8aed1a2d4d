package cli

import (
	"fmt"
	"strings"

	"github.com/halowlab/halowdiag/internal/config"
	"github.com/halowlab/halowdiag/internal/rpc"
	"github.com/halowlab/halowdiag/internal/ui"
	"github.com/halowlab/halowdiag/internal/util"
	"github.com/halowlab/halowdiag/pkg/sshutil"
	"github.com/spf13/cobra"
)

var targetsNoSSHConfig bool

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List routers diagnostics can run on",
	Long: `List the targets from the config file, followed by the hosts in
~/.ssh/config. Any SSH alias can be used as a target with --via ssh
--target <alias>.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var hosts []sshutil.HostEntry
		if !targetsNoSSHConfig {
			var err error
			if hosts, err = loadSSHHosts(); err != nil {
				log.Warn("couldn't read ~/.ssh/config: %v", err)
			}
		}
		rows := targetRows(cfg, hosts)
		if machineMode {
			if rows == nil {
				rows = []ui.TargetRow{}
			}
			return WriteJSONSuccess(cmd.OutOrStdout(), rows)
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderTargetTable(rows))
		return nil
	},
}

// loadSSHHosts reads ~/.ssh/config. Replaced in tests.
var loadSSHHosts = func() ([]sshutil.HostEntry, error) { return sshutil.ListHosts("") }

func init() {
	targetsCmd.Flags().BoolVar(&targetsNoSSHConfig, "no-ssh-config", false, "only list targets from the config file")
	rootCmd.AddCommand(targetsCmd)
}

// targetRows lists configured targets sorted by name, then SSH config
// hosts that no target already uses by name.
func targetRows(c *config.Config, hosts []sshutil.HostEntry) []ui.TargetRow {
	defaultName, _, _ := c.ResolveTarget("")

	var rows []ui.TargetRow
	for _, name := range util.SortedKeys(c.Targets) {
		t := c.Targets[name]
		via := t.Via
		if via == "" {
			via = config.ViaLocal
		}
		var addr string
		switch via {
		case config.ViaSSH:
			addr = strings.Join(t.SSH, ", ")
		case config.ViaUbus:
			addr = rpc.NormalizeURL(t.URL)
		}
		rows = append(rows, ui.TargetRow{
			Name:    name,
			Via:     via,
			Address: addr,
			Source:  "config",
			Default: name == defaultName,
		})
	}

	for _, h := range hosts {
		if _, ok := c.Targets[h.Alias]; ok {
			continue
		}
		rows = append(rows, ui.TargetRow{
			Name:    h.Alias,
			Via:     config.ViaSSH,
			Address: h.Description(),
			Source:  "ssh config",
		})
	}
	return rows
}
