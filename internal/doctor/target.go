package doctor

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/halowlab/halowdiag/internal/diag"
	"github.com/halowlab/halowdiag/internal/exec"
)

// Opener connects to a target and returns its executor plus a func that
// releases the connection.
type Opener func(ctx context.Context) (exec.Executor, func() error, error)

// TargetCheck connects to a target router and runs uname on it. A later
// ToolsCheck reuses the connection.
type TargetCheck struct {
	Target string
	Via    string
	Open   Opener

	executor exec.Executor
	close    func() error
}

func (c *TargetCheck) Name() string     { return "target_" + c.Target }
func (c *TargetCheck) Category() string { return CategoryTargets }

func (c *TargetCheck) Run(ctx context.Context) CheckResult {
	start := time.Now()
	ex, closeFn, err := c.Open(ctx)
	if err != nil {
		msg, suggestion := describe(err, c.suggestion())
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", c.label(), msg),
			Suggestion: suggestion,
		}
	}
	c.executor, c.close = ex, closeFn

	res, err := ex.Execute(ctx, "uname", []string{"-n"})
	if err != nil {
		msg, suggestion := describe(err, c.suggestion())
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", c.label(), msg),
			Suggestion: suggestion,
		}
	}

	host := strings.TrimSpace(res.Stdout)
	if host == "" {
		host = "router"
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: reached %s in %s", c.label(), host, time.Since(start).Round(time.Millisecond)),
	}
}

// Executor returns the connection opened by Run, or nil if it failed.
func (c *TargetCheck) Executor() exec.Executor {
	return c.executor
}

// Close releases the connection opened by Run.
func (c *TargetCheck) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

func (c *TargetCheck) label() string {
	return fmt.Sprintf("%s (%s)", c.Target, c.Via)
}

func (c *TargetCheck) suggestion() string {
	switch c.Via {
	case "ssh":
		return "Try connecting directly: ssh " + c.Target
	case "ubus":
		return "Check the router's LuCI address and login"
	default:
		return ""
	}
}

// RouterTools returns the executables the diagnostics commands run.
func RouterTools() []string {
	var tools []string
	seen := make(map[string]bool)
	for _, t := range []diag.Tool{diag.Ping, diag.Iperf3Client, diag.Traceroute, diag.Nslookup, diag.ArpScan} {
		if !seen[t.Exec] {
			seen[t.Exec] = true
			tools = append(tools, t.Exec)
		}
	}
	return tools
}

// ToolsCheck looks for the diagnostic tools and the poll helper on a
// target with busybox which.
type ToolsCheck struct {
	Conn       *TargetCheck
	Tools      []string
	PollHelper string
}

func (c *ToolsCheck) Name() string     { return "tools_" + c.Conn.Target }
func (c *ToolsCheck) Category() string { return CategoryTools }

func (c *ToolsCheck) Run(ctx context.Context) CheckResult {
	ex := c.Conn.Executor()
	if ex == nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s: not checked, target unreachable", c.Conn.Target),
		}
	}

	args := append([]string{}, c.Tools...)
	if c.PollHelper != "" {
		args = append(args, c.PollHelper)
	}
	// which exits 1 when anything is missing; the output still lists the rest.
	res, err := ex.Execute(ctx, "which", args)
	if err != nil {
		msg, _ := describe(err, "")
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("%s: cannot run which: %s", c.Conn.Target, msg),
		}
	}

	found := make(map[string]bool)
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		found[line] = true
		found[path.Base(line)] = true
	}

	var missing []string
	for _, tool := range c.Tools {
		if !found[tool] {
			missing = append(missing, tool)
		}
	}
	helperMissing := c.PollHelper != "" && !found[c.PollHelper]

	if len(missing) == 0 && !helperMissing {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("%s: %s installed", c.Conn.Target, strings.Join(c.Tools, ", ")),
		}
	}

	var gone, fixes []string
	gone = append(gone, missing...)
	if len(missing) > 0 {
		fixes = append(fixes, "opkg update && opkg install "+strings.Join(missing, " "))
	}
	if helperMissing {
		gone = append(gone, c.PollHelper)
		fixes = append(fixes, "Streaming diagnostics need the poll helper at "+c.PollHelper)
	}
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusFail,
		Message:    fmt.Sprintf("%s: missing %s", c.Conn.Target, strings.Join(gone, ", ")),
		Suggestion: strings.Join(fixes, "\n"),
	}
}

// NewTargetChecks creates the connection and tools checks for one target.
func NewTargetChecks(name, via string, open Opener, pollHelper string) (*TargetCheck, []Check) {
	conn := &TargetCheck{Target: name, Via: via, Open: open}
	return conn, []Check{
		conn,
		&ToolsCheck{Conn: conn, Tools: RouterTools(), PollHelper: pollHelper},
	}
}
