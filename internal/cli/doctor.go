package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/halowlab/halowdiag/internal/config"
	"github.com/halowlab/halowdiag/internal/device"
	"github.com/halowlab/halowdiag/internal/doctor"
	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/exec"
	"github.com/halowlab/halowdiag/internal/logger"
	"github.com/halowlab/halowdiag/internal/ui"
	"github.com/halowlab/halowdiag/internal/util"
	"github.com/spf13/cobra"
)

// doctorParallel bounds how many targets and devices are checked at once.
const doctorParallel = 4

// doctorLoadErr holds the config error doctor reports instead of failing on.
var doctorLoadErr error

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the config, SSH setup, targets and devices",
	Long: `Run health checks and report what needs fixing:

  CONFIG   the config file loads and names some targets
  SSH      a key and a running agent, when any target uses SSH
  TARGETS  each target (or --target) answers
  TOOLS    ping, iperf3, traceroute, nslookup, arp-scan and the poll
           helper are installed on each target that answered
  DEVICES  each remote device (or --device) logs in and has a HaLow radio

Exits 1 when any check fails. With --json the report is printed as JSON.`,
	Args: cobra.NoArgs,
	// A broken config is something to report, not a reason to stop.
	PersistentPreRunE: func(*cobra.Command, []string) error {
		doctorLoadErr = loadConfig()
		if doctorLoadErr != nil {
			cfg = config.DefaultConfig()
		}
		noPrompt = true
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

func doctorCommand(cmd *cobra.Command) error {
	ctx, stop := signalContext()
	defer stop()

	groups, conns := collectChecks()
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()

	grouped := doctor.RunGroups(ctx, groups, doctorParallel)

	var checks []doctor.Check
	var results []doctor.CheckResult
	for i, group := range groups {
		checks = append(checks, group...)
		results = append(results, grouped[i]...)
	}

	out := cmd.OutOrStdout()
	if machineMode {
		if err := WriteJSONSuccess(out, doctorReport(checks, results)); err != nil {
			return err
		}
	} else {
		renderDoctorText(out, checks, results)
	}

	if doctor.HasFailures(results) {
		return errors.NewExitError(1)
	}
	return nil
}

// collectChecks builds one group per concern: config, SSH, each target and
// each device. It also returns the target checks whose connections must be
// closed afterwards.
func collectChecks() ([][]doctor.Check, []*doctor.TargetCheck) {
	groups := [][]doctor.Check{doctor.NewConfigChecks(cfgPath, cfg, doctorLoadErr)}

	targets := doctorTargetNames()
	if usesSSH(targets) {
		groups = append(groups, doctor.NewSSHChecks())
	}

	var conns []*doctor.TargetCheck
	for _, name := range targets {
		conn, checks := doctor.NewTargetChecks(name, targetVia(name), targetOpener(name), cfg.Diagnostics.PollHelper)
		conns = append(conns, conn)
		groups = append(groups, checks)
	}

	for _, name := range doctorDeviceNames() {
		groups = append(groups, []doctor.Check{&doctor.DeviceCheck{Device: name, Open: deviceOpener(name)}})
	}
	return groups, conns
}

// doctorTargetNames is --target when set, else every configured target,
// else the default.
func doctorTargetNames() []string {
	if targetFlag != "" {
		return []string{targetFlag}
	}
	if names := util.SortedKeys(cfg.Targets); len(names) > 0 {
		return names
	}
	name, _, _ := cfg.ResolveTarget("")
	return []string{name}
}

func doctorDeviceNames() []string {
	if deviceFlag != "" {
		return []string{deviceFlag}
	}
	return util.SortedKeys(cfg.Devices)
}

func usesSSH(targets []string) bool {
	for _, name := range targets {
		if targetVia(name) == config.ViaSSH {
			return true
		}
	}
	return false
}

// targetVia is the executor a target would be opened with.
func targetVia(name string) string {
	if viaFlag != "" {
		return viaFlag
	}
	_, t, err := cfg.ResolveTarget(name)
	if err != nil || t.Via == "" {
		return config.ViaLocal
	}
	return t.Via
}

func targetOpener(name string) doctor.Opener {
	return func(context.Context) (exec.Executor, func() error, error) {
		resolved, t, err := cfg.ResolveTarget(name)
		if err != nil {
			return nil, nil, err
		}
		t.Via = targetVia(resolved)
		conn, err := openTarget(resolved, t, cfg.Diagnostics.PollHelper, logger.Named(log, resolved))
		if err != nil {
			return nil, nil, err
		}
		return conn.Executor, conn.Close, nil
	}
}

func deviceOpener(name string) doctor.DeviceOpener {
	return func(context.Context) (*device.Device, func() error, error) {
		s, err := openNamedDevice(name)
		if err != nil {
			return nil, nil, err
		}
		return s.Device, s.Close, nil
	}
}

// doctorReport groups results by category in report order.
func doctorReport(checks []doctor.Check, results []doctor.CheckResult) DoctorOutput {
	grouped := make(map[string][]doctor.CheckResult)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], results[i])
	}

	output := DoctorOutput{Categories: []CategoryOutput{}}
	for _, cat := range doctor.CategoryOrder {
		if rs, ok := grouped[cat]; ok {
			output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: rs})
		}
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		AllClear: !doctor.HasIssues(results),
	}
	return output
}

// renderDoctorText writes the human-readable report.
func renderDoctorText(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("halowdiag health report"))
	fmt.Fprintln(w)

	for _, cat := range doctorReport(checks, results).Categories {
		fmt.Fprintln(w, headerStyle.Render(cat.Name))
		for _, r := range cat.Results {
			renderCheckResult(w, r)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	if doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), doctor.Summary(results))
	} else {
		fmt.Fprintf(w, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
	}
}

// renderCheckResult renders a single check result.
func renderCheckResult(w io.Writer, r doctor.CheckResult) {
	var symbol string
	var style lipgloss.Style

	switch r.Status {
	case doctor.StatusPass:
		symbol, style = ui.SymbolComplete, ui.SuccessStyle()
	case doctor.StatusWarn:
		symbol, style = ui.SymbolComplete, lipgloss.NewStyle().Foreground(ui.ColorWarning)
	default:
		symbol, style = ui.SymbolFail, ui.ErrorStyle()
	}

	fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), r.Message)

	if r.Suggestion != "" && r.Status != doctor.StatusPass {
		for _, line := range strings.Split(r.Suggestion, "\n") {
			fmt.Fprintf(w, "    %s\n", ui.MutedStyle().Render(line))
		}
	}
}
