package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/halowlab/halowdiag/internal/config"
	"github.com/halowlab/halowdiag/internal/device"
	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/logger"
	"github.com/halowlab/halowdiag/internal/reconnect"
	"github.com/halowlab/halowdiag/internal/ui"
	"github.com/halowlab/halowdiag/internal/util"
	"github.com/spf13/cobra"
)

// defaultApplySections are the network sections whose new addresses the
// device is looked for on after apply, unless reconnect.sections is set.
var defaultApplySections = []string{"lan", "privlan"}

var (
	applyWait       bool
	channelsCountry string
	channelsSummary bool
)

// deviceSession is an open remote device plus the target connection it
// relays through, if any.
type deviceSession struct {
	Name   string
	Device *device.Device
	Config config.Device

	conn *Connection
}

func (s *deviceSession) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// openDevice opens the device selected by --device. Replaced in tests.
var openDevice = func() (*deviceSession, error) {
	return openNamedDevice(deviceFlag)
}

// openNamedDevice opens a configured device. Devices with proxy set relay
// through the current target, which must use ubus.
func openNamedDevice(name string) (*deviceSession, error) {
	name, d, err := cfg.ResolveDevice(name)
	if err != nil {
		return nil, err
	}

	opts := device.Options{
		Username: d.Username,
		Password: d.Password,
		Timeout:  d.Timeout,
		Log:      logger.Named(log, name),
	}
	s := &deviceSession{Name: name, Config: d}

	if d.Proxy {
		conn, err := connectTarget()
		if err != nil {
			return nil, err
		}
		if conn.RPC == nil {
			conn.Close()
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Device '%s' relays through target '%s', which doesn't use ubus", name, conn.Name),
				"Pick a target with via: ubus, or set proxy: false on the device.")
		}
		opts.Proxy = conn.RPC
		s.conn = conn
	}

	s.Device = device.Open(d.URL, opts)
	return s, nil
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage a remote HaLow device over ubus",
	Long: `Inspect and configure a second HaLow device through its ubus JSON-RPC
endpoint. The device is picked with --device, or is the only one under
'devices' in the config.`,
}

var deviceInterfaceCmd = &cobra.Command{
	Use:   "interface",
	Short: "Print the device's HaLow network interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(ctx context.Context, s *deviceSession) error {
			iface, err := s.Device.Interface(ctx)
			if err != nil {
				return err
			}
			if machineMode {
				return WriteJSONSuccess(cmd.OutOrStdout(), map[string]string{"interface": iface})
			}
			fmt.Fprintln(cmd.OutOrStdout(), iface)
			return nil
		})
	},
}

var deviceScanCmd = &cobra.Command{
	Use:   "scan [iface]",
	Short: "List HaLow networks the device can see",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(ctx context.Context, s *deviceSession) error {
			var iface string
			if len(args) > 0 {
				iface = args[0]
			} else {
				var err error
				if iface, err = s.Device.Interface(ctx); err != nil {
					return err
				}
			}
			results, err := s.Device.Scan(ctx, iface)
			if err != nil {
				return err
			}
			if machineMode {
				return WriteJSONSuccess(cmd.OutOrStdout(), results)
			}
			printScan(cmd.OutOrStdout(), results)
			return nil
		})
	},
}

var deviceChannelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Show the device's HaLow regulatory channel table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(ctx context.Context, s *deviceSession) error {
			country := strings.ToUpper(channelsCountry)
			if channelsSummary {
				m, err := s.Device.ChannelMap(ctx)
				if err != nil {
					return err
				}
				if machineMode {
					return WriteJSONSuccess(cmd.OutOrStdout(), filterChannelMap(m, country))
				}
				printChannelMap(cmd.OutOrStdout(), m, country)
				return nil
			}
			rows, err := s.Device.HalowChannels(ctx)
			if err != nil {
				return err
			}
			if machineMode {
				return WriteJSONSuccess(cmd.OutOrStdout(), filterChannels(rows, country))
			}
			printChannels(cmd.OutOrStdout(), rows, country)
			return nil
		})
	},
}

var deviceChangesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List configuration changes staged on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(ctx context.Context, s *deviceSession) error {
			changes, err := s.Device.UCI.Changes(ctx)
			if err != nil {
				return err
			}
			if machineMode {
				return WriteJSONSuccess(cmd.OutOrStdout(), changes)
			}
			printChanges(cmd.OutOrStdout(), changes)
			return nil
		})
	},
}

var deviceApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply staged configuration changes",
	Long: `Apply the device's staged configuration changes.

With --wait, halowdiag then waits for the device to answer again, trying
its current address, any extra addresses from the config and every new
LAN address in the applied changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(ctx context.Context, s *deviceSession) error {
			return applyCommand(ctx, cmd, s)
		})
	},
}

func init() {
	deviceChannelsCmd.Flags().StringVar(&channelsCountry, "country", "", "only show this country code, e.g. US")
	deviceChannelsCmd.Flags().BoolVar(&channelsSummary, "summary", false, "group channels by operating class")
	deviceApplyCmd.Flags().BoolVar(&applyWait, "wait", false, "wait for the device to come back")

	deviceCmd.AddCommand(deviceInterfaceCmd, deviceScanCmd, deviceChannelsCmd, deviceChangesCmd, deviceApplyCmd)
	rootCmd.AddCommand(deviceCmd)
}

func withDevice(fn func(ctx context.Context, s *deviceSession) error) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := openDevice()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func applyCommand(ctx context.Context, cmd *cobra.Command, s *deviceSession) error {
	out := cmd.OutOrStdout()
	if !applyWait {
		if err := s.Device.UCI.Apply(ctx, 0, false); err != nil {
			return err
		}
		if machineMode {
			return WriteJSONSuccess(out, reconnect.Result{Address: s.Device.Host(), Immediate: true})
		}
		fmt.Fprintf(out, "%s Applied changes on %s\n", ui.SymbolSuccess, s.Name)
		return nil
	}

	sections := cfg.Reconnect.Sections
	if len(sections) == 0 {
		sections = defaultApplySections
	}
	cd := newCountdown(cmd.ErrOrStderr(), "Waiting for "+s.Name)
	res, err := s.Device.ApplyAndWait(ctx, device.ApplyOptions{
		Extra:    s.Config.Extra,
		Sections: sections,
		Watchdog: watchdogOptions(cd.tick),
	})
	cd.done(err == nil)
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(out, res)
	}
	if res.Immediate {
		fmt.Fprintf(out, "%s Applied changes on %s\n", ui.SymbolSuccess, s.Name)
	} else {
		fmt.Fprintf(out, "%s %s is back on %s\n", ui.SymbolSuccess, s.Name, res.Address)
	}
	return nil
}

// watchdogOptions maps the reconnect config section onto the watchdog.
func watchdogOptions(onTick func(time.Duration)) reconnect.Options {
	return reconnect.Options{
		Deadline:     cfg.Reconnect.Deadline,
		Grace:        cfg.Reconnect.Grace,
		PollInterval: cfg.Reconnect.PollInterval,
		ProbeTimeout: cfg.Reconnect.ProbeTimeout,
		OnTick:       onTick,
		Log:          logger.Named(log, "reconnect"),
	}
}

func printScan(w io.Writer, results []device.ScanResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No networks found")
		return
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		enc := "open"
		if r.Encryption.Enabled {
			enc = r.Encryption.Description
		}
		quality := "-"
		if r.QualityMax > 0 {
			quality = fmt.Sprintf("%d%%", r.Quality*100/r.QualityMax)
		}
		rows[i] = []string{r.SSID, r.BSSID, strconv.Itoa(r.Channel), fmt.Sprintf("%d dBm", r.Signal), quality, enc}
	}
	fmt.Fprintln(w, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "SSID", Width: 20},
		{Title: "BSSID", Width: 18},
		{Title: "CH", Width: 4},
		{Title: "SIGNAL", Width: 8},
		{Title: "QUALITY", Width: 8},
		{Title: "ENCRYPTION", Width: 16},
	}, rows))
}

// channelColumns are shown in this order; other columns are left out.
var channelColumns = []ui.TableColumn{
	{Title: "country_code", Width: 8},
	{Title: "bw", Width: 4},
	{Title: "s1g_chan", Width: 9},
	{Title: "global_op_class", Width: 16},
	{Title: "centre_freq_mhz", Width: 16},
	{Title: "tx_power_max", Width: 13},
}

// filterChannels keeps the rows of one country, or all rows when country
// is empty.
func filterChannels(channels []map[string]string, country string) []map[string]string {
	out := make([]map[string]string, 0, len(channels))
	for _, ch := range channels {
		if country == "" || ch["country_code"] == country {
			out = append(out, ch)
		}
	}
	return out
}

func filterChannelMap(m device.ChannelMap, country string) device.ChannelMap {
	if country == "" {
		return m
	}
	out := device.ChannelMap{}
	if classes, ok := m[country]; ok {
		out[country] = classes
	}
	return out
}

func printChannels(w io.Writer, channels []map[string]string, country string) {
	var rows [][]string
	for _, ch := range filterChannels(channels, country) {
		row := make([]string, len(channelColumns))
		for i, col := range channelColumns {
			row[i] = ch[col.Title]
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No channels found")
		return
	}
	fmt.Fprintln(w, ui.RenderSimpleTable(channelColumns, rows))
}

func printChannelMap(w io.Writer, m device.ChannelMap, country string) {
	printed := false
	for _, cc := range util.SortedKeys(m) {
		if country != "" && cc != country {
			continue
		}
		fmt.Fprintln(w, ui.HeaderStyle.Render(cc))
		classes := m[cc]
		names := make([]string, 0, len(classes))
		for name := range classes {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			a, _ := strconv.Atoi(names[i])
			b, _ := strconv.Atoi(names[j])
			return a < b
		})
		for _, name := range names {
			plan := classes[name]
			chans := make([]string, len(plan.Channels))
			for i, c := range plan.Channels {
				chans[i] = strconv.Itoa(c)
			}
			fmt.Fprintf(w, "  class %-4s %d MHz  %s  (%.1f-%.1f MHz)\n",
				name, plan.Bandwidth, strings.Join(chans, ","), plan.Freqs[0], plan.Freqs[len(plan.Freqs)-1])
		}
		printed = true
	}
	if !printed {
		fmt.Fprintln(w, "No channels found")
	}
}

func printChanges(w io.Writer, changes reconnect.ChangeSet) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No staged changes")
		return
	}
	for _, name := range util.SortedKeys(changes) {
		fmt.Fprintln(w, ui.HeaderStyle.Render(name))
		for _, c := range changes[name] {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
}
