package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	hderrors "github.com/halowlab/halowdiag/internal/errors"
)

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status   CheckStatus
		expected string
	}{
		{StatusPass, "pass"},
		{StatusWarn, "warn"},
		{StatusFail, "fail"},
		{CheckStatus(99), "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			if got := tc.status.String(); got != tc.expected {
				t.Errorf("got %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestCheckResult_JSONStatusByName(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "x", Status: StatusWarn, Message: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"status":"warn"`) {
		t.Errorf("status not rendered by name: %s", data)
	}
	if strings.Contains(string(data), "suggestion") {
		t.Errorf("empty suggestion should be omitted: %s", data)
	}
}

// mockCheck is a test implementation of Check.
type mockCheck struct {
	name     string
	category string
	result   CheckResult
	delay    time.Duration
	running  *atomic.Int32
	peak     *atomic.Int32
}

func (m *mockCheck) Name() string     { return m.name }
func (m *mockCheck) Category() string { return m.category }
func (m *mockCheck) Run(context.Context) CheckResult {
	if m.running != nil {
		n := m.running.Add(1)
		for {
			p := m.peak.Load()
			if n <= p || m.peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer m.running.Add(-1)
	}
	time.Sleep(m.delay)
	return m.result
}

func TestRunAll(t *testing.T) {
	checks := []Check{
		&mockCheck{name: "check1", category: "TEST", result: CheckResult{Name: "check1", Status: StatusPass, Message: "OK"}},
		&mockCheck{name: "check2", category: "TEST", result: CheckResult{Name: "check2", Status: StatusFail, Message: "Failed"}},
	}

	results := RunAll(context.Background(), checks)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusPass {
		t.Errorf("expected first check to pass")
	}
	if results[1].Status != StatusFail {
		t.Errorf("expected second check to fail")
	}
}

func TestRunGroups_KeepsOrderAndLimit(t *testing.T) {
	var running, peak atomic.Int32
	mk := func(name string) Check {
		return &mockCheck{
			name:    name,
			result:  CheckResult{Name: name},
			delay:   20 * time.Millisecond,
			running: &running,
			peak:    &peak,
		}
	}
	groups := [][]Check{
		{mk("a1"), mk("a2")},
		{mk("b1")},
		{mk("c1"), mk("c2"), mk("c3")},
	}

	results := RunGroups(context.Background(), groups, 2)

	if len(results) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(results))
	}
	want := [][]string{{"a1", "a2"}, {"b1"}, {"c1", "c2", "c3"}}
	for i, group := range want {
		if len(results[i]) != len(group) {
			t.Fatalf("group %d: got %d results", i, len(results[i]))
		}
		for j, name := range group {
			if results[i][j].Name != name {
				t.Errorf("group %d result %d: got %q, want %q", i, j, results[i][j].Name, name)
			}
		}
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("ran %d checks at once, limit was 2", p)
	}
}

func TestCountByStatus(t *testing.T) {
	results := []CheckResult{
		{Status: StatusPass},
		{Status: StatusPass},
		{Status: StatusWarn},
		{Status: StatusFail},
	}

	counts := CountByStatus(results)

	if counts[StatusPass] != 2 || counts[StatusWarn] != 1 || counts[StatusFail] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestHasFailuresAndIssues(t *testing.T) {
	pass := []CheckResult{{Status: StatusPass}}
	warn := []CheckResult{{Status: StatusPass}, {Status: StatusWarn}}
	fail := []CheckResult{{Status: StatusFail}}

	if HasFailures(pass) || HasIssues(pass) {
		t.Error("all-pass results should have no issues")
	}
	if HasFailures(warn) {
		t.Error("warnings are not failures")
	}
	if !HasIssues(warn) {
		t.Error("warnings are issues")
	}
	if !HasFailures(fail) || !HasIssues(fail) {
		t.Error("failures are issues")
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		results []CheckResult
		want    string
	}{
		{[]CheckResult{{Status: StatusPass}}, "Everything looks good"},
		{[]CheckResult{{Status: StatusWarn}}, "1 issue found"},
		{[]CheckResult{{Status: StatusWarn}, {Status: StatusFail}}, "2 issues found"},
	}

	for _, tc := range tests {
		if got := Summary(tc.results); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	msg, suggestion := describe(hderrors.New(hderrors.ErrAuth, "Login rejected", "Check the password"), "fallback")
	if msg != "Login rejected" || suggestion != "Check the password" {
		t.Errorf("structured: got %q / %q", msg, suggestion)
	}

	msg, suggestion = describe(hderrors.New(hderrors.ErrAuth, "Login rejected", ""), "fallback")
	if suggestion != "fallback" {
		t.Errorf("empty suggestion should fall back, got %q", suggestion)
	}

	msg, suggestion = describe(errors.New("dial tcp: refused"), "fallback")
	if msg != "dial tcp: refused" || suggestion != "fallback" {
		t.Errorf("plain: got %q / %q", msg, suggestion)
	}
}
