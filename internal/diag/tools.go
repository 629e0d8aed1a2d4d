package diag

// Tool describes how a diagnostic command line is assembled.
type Tool struct {
	Name string
	Exec string
	// ExecIPv6 replaces Exec when the arguments contain -6.
	ExecIPv6 string
	// ExtraArgs come before the user arguments.
	ExtraArgs []string
}

var (
	Ping         = Tool{Name: "ping", Exec: "ping", ExecIPv6: "ping6"}
	Traceroute   = Tool{Name: "traceroute", Exec: "traceroute", ExecIPv6: "traceroute6", ExtraArgs: []string{"-q", "1", "-w", "1", "-n", "-m", "20"}}
	Nslookup     = Tool{Name: "nslookup", Exec: "nslookup"}
	ArpScan      = Tool{Name: "arp-scan", Exec: "arp-scan", ExtraArgs: []string{"-l", "-I"}}
	Iperf3Client = Tool{Name: "iperf3", Exec: "iperf3", ExtraArgs: []string{"-c"}}
	Iperf3Server = Tool{Name: "iperf3", Exec: "iperf3", ExtraArgs: []string{"-s"}}
)

// CommandLine returns the executable and its full argument list.
// Empty arguments are dropped so unset optional fields vanish.
func (t Tool) CommandLine(args ...string) (string, []string) {
	exec := t.Exec
	out := make([]string, 0, len(t.ExtraArgs)+len(args))
	out = append(out, t.ExtraArgs...)
	for _, a := range args {
		if a == "" {
			continue
		}
		if a == "-6" && t.ExecIPv6 != "" {
			exec = t.ExecIPv6
		}
		out = append(out, a)
	}
	return exec, out
}
