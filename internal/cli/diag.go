package cli

import (
	"strconv"

	"github.com/halowlab/halowdiag/internal/dashboard"
	"github.com/halowlab/halowdiag/internal/diag"
	"github.com/halowlab/halowdiag/internal/stream"
	"github.com/spf13/cobra"
)

var pingFlags struct {
	ipv4  bool
	ipv6  bool
	count int
	wait  string
}

var iperfClientFlags struct {
	udp     bool
	reverse bool
	bidir   bool
	bitrate string
	time    int
	omit    int
}

var iperfServerFlags struct {
	oneOff bool
}

var (
	tracerouteIPv6 bool
	nslookupIPv6   bool
)

var pingCmd = &cobra.Command{
	Use:   "ping <host>",
	Short: "Ping a host from the router",
	Long: `Ping a host from the target router, one probe at a time, and chart the
round-trip times of the last probes.

Each probe waits -W seconds (1 to 10) for a reply. Without -c it runs until
you press q or Ctrl+C.

Examples:
  halowdiag ping 10.42.0.2
  halowdiag ping --target mesh -c 20 -W 2 10.42.0.9
  halowdiag ping -6 fe80::1%wlan0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pingCommand(cmd, args[0])
	},
}

var iperfCmd = &cobra.Command{
	Use:   "iperf3",
	Short: "Measure throughput with iperf3",
}

var iperfClientCmd = &cobra.Command{
	Use:   "client <host>",
	Short: "Run an iperf3 client on the router",
	Long: `Run iperf3 against a server and chart TX and RX bitrate per second.

Examples:
  halowdiag iperf3 client 10.42.0.2
  halowdiag iperf3 client --bidir --time 30 10.42.0.2
  halowdiag iperf3 client -u --bitrate 5M 10.42.0.2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return streamCommand(cmd, diag.Iperf3Client, true, "iperf3 → "+args[0], iperfClientArgs(args[0])...)
	},
}

var iperfServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Run an iperf3 server on the router",
	Long: `Run an iperf3 server on the target router and chart incoming tests.

While no test runs the chart keeps scrolling with empty samples.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var extra []string
		if iperfServerFlags.oneOff {
			extra = append(extra, "--one-off")
		}
		return streamCommand(cmd, diag.Iperf3Server, true, "iperf3 server", extra...)
	},
}

var tracerouteCmd = &cobra.Command{
	Use:   "traceroute <host>",
	Short: "Trace the route to a host from the router",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return streamCommand(cmd, diag.Traceroute, false, "traceroute "+args[0], ipv6Flag(tracerouteIPv6), args[0])
	},
}

var nslookupCmd = &cobra.Command{
	Use:   "nslookup <host> [server]",
	Short: "Resolve a name from the router",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return streamCommand(cmd, diag.Nslookup, false, "nslookup "+args[0], append([]string{ipv6Flag(nslookupIPv6)}, args...)...)
	},
}

var arpScanCmd = &cobra.Command{
	Use:   "arp-scan <iface>",
	Short: "List hosts on a router interface's local network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return streamCommand(cmd, diag.ArpScan, false, "arp-scan "+args[0], args[0])
	},
}

func init() {
	pingCmd.Flags().BoolVarP(&pingFlags.ipv4, "ipv4", "4", false, "force IPv4")
	pingCmd.Flags().BoolVarP(&pingFlags.ipv6, "ipv6", "6", false, "force IPv6")
	pingCmd.Flags().IntVarP(&pingFlags.count, "count", "c", 0, "stop after this many probes (default: until quit)")
	pingCmd.Flags().StringVarP(&pingFlags.wait, "wait", "W", "", "seconds to wait for each reply, 1 to 10 (default 1)")
	pingCmd.MarkFlagsMutuallyExclusive("ipv4", "ipv6")

	f := iperfClientCmd.Flags()
	f.BoolVarP(&iperfClientFlags.udp, "udp", "u", false, "use UDP rather than TCP")
	f.BoolVarP(&iperfClientFlags.reverse, "reverse", "R", false, "server sends, client receives")
	f.BoolVar(&iperfClientFlags.bidir, "bidir", false, "send and receive at the same time")
	f.StringVarP(&iperfClientFlags.bitrate, "bitrate", "b", "", "target bitrate, e.g. 5M")
	f.IntVarP(&iperfClientFlags.time, "time", "t", 0, "test length in seconds (iperf3 default 10)")
	f.IntVarP(&iperfClientFlags.omit, "omit", "O", 0, "skip the first seconds of the test")
	iperfClientCmd.MarkFlagsMutuallyExclusive("reverse", "bidir")

	iperfServerCmd.Flags().BoolVarP(&iperfServerFlags.oneOff, "one-off", "1", false, "exit after one test")

	tracerouteCmd.Flags().BoolVarP(&tracerouteIPv6, "ipv6", "6", false, "trace over IPv6")
	nslookupCmd.Flags().BoolVarP(&nslookupIPv6, "ipv6", "6", false, "query AAAA records")

	iperfCmd.AddCommand(iperfClientCmd, iperfServerCmd)
	rootCmd.AddCommand(pingCmd, iperfCmd, tracerouteCmd, nslookupCmd, arpScanCmd)
}

// pingArgs builds ping's argument list from the flags.
func pingArgs(host string) []string {
	var args []string
	switch {
	case pingFlags.ipv4:
		args = append(args, "-4")
	case pingFlags.ipv6:
		args = append(args, "-6")
	}
	if pingFlags.count > 0 {
		args = append(args, "-c", strconv.Itoa(pingFlags.count))
	}
	if pingFlags.wait != "" {
		args = append(args, "-W", pingFlags.wait)
	}
	return append(args, host)
}

// iperfClientArgs builds the client's argument list. The host follows -c.
func iperfClientArgs(host string) []string {
	args := []string{host}
	if iperfClientFlags.udp {
		args = append(args, "-u")
	}
	switch {
	case iperfClientFlags.reverse:
		args = append(args, "-R")
	case iperfClientFlags.bidir:
		args = append(args, "--bidir")
	}
	if iperfClientFlags.bitrate != "" {
		args = append(args, "-b", iperfClientFlags.bitrate)
	}
	if iperfClientFlags.time > 0 {
		args = append(args, "-t", strconv.Itoa(iperfClientFlags.time))
	}
	if iperfClientFlags.omit > 0 {
		args = append(args, "-O", strconv.Itoa(iperfClientFlags.omit))
	}
	return args
}

func ipv6Flag(on bool) string {
	if on {
		return "-6"
	}
	return ""
}

func pingCommand(cmd *cobra.Command, host string) error {
	ctx, stop := signalContext()
	defer stop()

	conn, err := connectTarget()
	if err != nil {
		return err
	}
	defer conn.Close()

	name, args := diag.Ping.CommandLine(pingArgs(host)...)
	log.Debug("ping on %s: %s %v", conn.Name, name, args)

	updates := stream.RunPing(ctx, conn.Executor, name, args, stream.PingOptions{
		Window: cfg.Diagnostics.PingWindow,
		Log:    log,
	})
	return dashboard.Ping(updates, stop, dashboard.Options{
		Title: host + " from " + conn.Name,
		Plain: plainFlag,
		Out:   cmd.OutOrStdout(),
	})
}

// streamCommand runs tool in the background on the target and shows its
// output as it arrives. Charts are drawn when chart is set.
func streamCommand(cmd *cobra.Command, tool diag.Tool, chart bool, title string, args ...string) error {
	ctx, stop := signalContext()
	defer stop()

	conn, err := connectTarget()
	if err != nil {
		return err
	}
	defer conn.Close()

	name, argv := tool.CommandLine(args...)
	engine := stream.NewEngine(conn.Executor, stream.Options{
		PollInterval:   cfg.Diagnostics.PollInterval,
		HeartbeatAfter: cfg.Diagnostics.HeartbeatAfter,
	}, log)
	s := engine.Start(ctx, "", name, argv)
	log.Debug("stream %s on %s: %s %v", s.ID, conn.Name, name, argv)

	return dashboard.Stream(s, stop, chart, dashboard.Options{
		Title:  title + " (" + conn.Name + ")",
		Plain:  plainFlag,
		Window: cfg.Diagnostics.BitrateWindow,
		Out:    cmd.OutOrStdout(),
	})
}
