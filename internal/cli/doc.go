// Package cli implements the halowdiag command-line interface.
//
// Each Cobra command resolves a target router from the config, opens an
// executor for it and hands the run to the diag, stream and dashboard
// packages:
//
//	halowdiag ping <host>              - Single-probe pings with a live RTT chart
//	halowdiag iperf3 client <host>     - Throughput test with TX/RX charts
//	halowdiag iperf3 server            - iperf3 server on the router
//	halowdiag traceroute|nslookup|arp-scan
//	halowdiag exec -- <cmd> [args]     - One command, exit code mirrored
//	halowdiag device ...               - Remote device over ubus JSON-RPC
//	halowdiag reconnect <addr>...      - Wait for a device to come back
//	halowdiag targets                  - Configured targets and SSH hosts
//	halowdiag init                     - Write a starter .halowdiag.yaml
//	halowdiag doctor                   - Check config, SSH, targets and devices
//
// # Targets
//
// A target names a router and how to reach it: local (this machine is the
// router), ssh (one or more SSH hosts tried in order) or ubus (LuCI's RPC
// endpoint and its file exec call). --target picks one; --via overrides
// how it is reached. With neither, the configured default is used, or the
// only target, or the local machine.
//
// # Flag Handling
//
// Global flags (--config, --target, --via, --device, --plain, --debug,
// --json) are defined on the root command. Its PersistentPreRunE loads the
// config and sets up logging before any command runs; version, completion
// and init skip it.
//
// # Errors
//
// Commands return structured errors from the errors package. Execute
// prints them once and exits 1, or with the remote exit code for exec.
package cli
