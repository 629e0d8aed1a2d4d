// Package doctor runs health checks over the config, the SSH setup, each
// target router and each remote device.
package doctor

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/util"
	"golang.org/x/sync/errgroup"
)

// CheckStatus represents the result status of a check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// String returns a human-readable status string.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Check defines the interface for diagnostic checks.
type Check interface {
	// Name returns the check's identifier.
	Name() string

	// Category returns the check's category (e.g., "CONFIG", "SSH", "TARGETS").
	Category() string

	// Run executes the check and returns the result.
	Run(ctx context.Context) CheckResult
}

// Categories in report order.
const (
	CategoryConfig  = "CONFIG"
	CategorySSH     = "SSH"
	CategoryTargets = "TARGETS"
	CategoryTools   = "TOOLS"
	CategoryDevices = "DEVICES"
)

// CategoryOrder lists the categories in the order reports show them.
var CategoryOrder = []string{CategoryConfig, CategorySSH, CategoryTargets, CategoryTools, CategoryDevices}

// RunAll executes checks in order and returns their results.
func RunAll(ctx context.Context, checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	for i, check := range checks {
		results[i] = check.Run(ctx)
	}
	return results
}

// RunGroups runs each group's checks in order, with up to limit groups at
// once. Later checks in a group may rely on earlier ones, e.g. a tools
// check on its target's connection. A limit below 1 means no limit.
func RunGroups(ctx context.Context, groups [][]Check, limit int) [][]CheckResult {
	results := make([][]CheckResult, len(groups))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, group := range groups {
		g.Go(func() error {
			results[i] = RunAll(ctx, group)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// CountByStatus counts results by status.
func CountByStatus(results []CheckResult) map[CheckStatus]int {
	counts := make(map[CheckStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// HasFailures returns true if any result has a fail status.
func HasFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// HasIssues returns true if any result has a fail or warn status.
func HasIssues(results []CheckResult) bool {
	for _, r := range results {
		if r.Status != StatusPass {
			return true
		}
	}
	return false
}

// Summary returns a summary string of the check results.
func Summary(results []CheckResult) string {
	counts := CountByStatus(results)
	total := counts[StatusWarn] + counts[StatusFail]
	if total == 0 {
		return "Everything looks good"
	}
	return fmt.Sprintf("%d issue%s found", total, pluralize(total))
}

func pluralize(n int) string {
	return util.Pluralize(n, "", "s")
}

// describe splits err into a message and a suggestion. Structured errors
// carry both; anything else falls back to fallback as the suggestion.
func describe(err error, fallback string) (string, string) {
	var hdErr *errors.Error
	if stderrors.As(err, &hdErr) {
		suggestion := hdErr.Suggestion
		if suggestion == "" {
			suggestion = fallback
		}
		return hdErr.Message, suggestion
	}
	return err.Error(), fallback
}
