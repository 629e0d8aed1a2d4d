package reconnect

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/rpc"
)

// Prober checks whether a device answers on address.
type Prober interface {
	Probe(ctx context.Context, address string) error
}

// ProbeError represents a failed probe with categorized failure reason.
type ProbeError struct {
	Address string
	Reason  ProbeFailReason
	Cause   error
}

// ProbeFailReason categorizes why a probe failed.
type ProbeFailReason int

const (
	ProbeFailUnknown ProbeFailReason = iota
	ProbeFailTimeout
	ProbeFailRefused
	ProbeFailUnreachable
	ProbeFailAuth
	ProbeFailRPC
)

// String returns a human-readable description of the failure reason.
func (r ProbeFailReason) String() string {
	switch r {
	case ProbeFailTimeout:
		return "timed out"
	case ProbeFailRefused:
		return "connection refused"
	case ProbeFailUnreachable:
		return "host unreachable"
	case ProbeFailAuth:
		return "login rejected"
	case ProbeFailRPC:
		return "remote call failed"
	default:
		return "unknown error"
	}
}

func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("probe %s failed: %s (%v)", e.Address, e.Reason, e.Cause)
	}
	return fmt.Sprintf("probe %s failed: %s", e.Address, e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// Answered reports whether the device replied and refused, as opposed to
// not being reachable yet. Waiting longer won't change the answer.
func (e *ProbeError) Answered() bool {
	return e.Reason == ProbeFailAuth || e.Reason == ProbeFailRPC
}

// categorizeProbeError wraps err in a ProbeError with a failure reason.
func categorizeProbeError(address string, err error) *ProbeError {
	if err == nil {
		return nil
	}

	probeErr := &ProbeError{Address: address, Reason: ProbeFailUnknown, Cause: err}

	if stderrors.Is(err, context.DeadlineExceeded) {
		probeErr.Reason = ProbeFailTimeout
		return probeErr
	}
	if errors.IsCode(err, errors.ErrAuth) {
		probeErr.Reason = ProbeFailAuth
		return probeErr
	}
	if errors.IsCode(err, errors.ErrRPC) && !errors.IsCode(err, errors.ErrTransport) {
		probeErr.Reason = ProbeFailRPC
		return probeErr
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout"):
		probeErr.Reason = ProbeFailTimeout
	case strings.Contains(errStr, "connection refused"):
		probeErr.Reason = ProbeFailRefused
	case strings.Contains(errStr, "no route to host"),
		strings.Contains(errStr, "network is unreachable"),
		strings.Contains(errStr, "host is down"):
		probeErr.Reason = ProbeFailUnreachable
	}

	return probeErr
}

// HTTPProber treats any HTTP response from scheme://address/ as reachable.
type HTTPProber struct {
	// Scheme defaults to http.
	Scheme string
	Client *http.Client
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context, address string) error {
	scheme := p.Scheme
	if scheme == "" {
		scheme = "http"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+address+"/", nil)
	if err != nil {
		return categorizeProbeError(address, err)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return categorizeProbeError(address, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
	res.Body.Close()
	return nil
}

// RPCProber logs in to the candidate and reads its network config, so a
// device only counts as back once rpcd answers authenticated calls.
type RPCProber struct {
	Username string
	Password string

	// Transport is shared by the per-candidate clients. Nil uses HTTP.
	Transport rpc.Transport
}

// Probe implements Prober.
func (p *RPCProber) Probe(ctx context.Context, address string) error {
	opts := []rpc.Option{}
	if p.Username != "" {
		opts = append(opts, rpc.WithCredentials(p.Username, p.Password))
	}
	if p.Transport != nil {
		opts = append(opts, rpc.WithTransport(p.Transport))
	}

	client := rpc.NewClient(address, opts...)
	if _, err := client.Call(ctx, "uci", "get", map[string]string{"config": "network"}); err != nil {
		return categorizeProbeError(address, err)
	}
	return nil
}
