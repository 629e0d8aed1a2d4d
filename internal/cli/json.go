package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/reconnect"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound   = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "CONFIG_INVALID"
	ErrCodeTransportFailed  = "TRANSPORT_FAILED"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeRPCFailed        = "RPC_FAILED"
	ErrCodeParseFailed      = "PARSE_FAILED"
	ErrCodeReconnectTimeout = "RECONNECT_TIMEOUT"
	ErrCodeProbeTimeout     = "PROBE_TIMEOUT"
	ErrCodeProbeRefused     = "PROBE_REFUSED"
	ErrCodeCommandFailed    = "COMMAND_FAILED"
	ErrCodeUnknown          = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Error: ErrorToJSON(err)})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
// A probe failure is reported by its reason even when wrapped.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var probeErr *reconnect.ProbeError
	if stderrors.As(err, &probeErr) {
		return probeErrorToJSON(probeErr)
	}

	var hdErr *errors.Error
	if stderrors.As(err, &hdErr) {
		return &JSONError{
			Code:       mapErrorCode(hdErr.Code, hdErr.Message),
			Message:    hdErr.Message,
			Suggestion: hdErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		msgLower := strings.ToLower(message)
		if strings.Contains(msgLower, "not found") || strings.Contains(msgLower, "unknown") ||
			strings.Contains(msgLower, "no device selected") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrTransport:
		return ErrCodeTransportFailed
	case errors.ErrAuth:
		return ErrCodeAuthFailed
	case errors.ErrRPC:
		return ErrCodeRPCFailed
	case errors.ErrParse:
		return ErrCodeParseFailed
	case errors.ErrReconnect:
		return ErrCodeReconnectTimeout
	case errors.ErrExec:
		return ErrCodeCommandFailed
	}
	return ErrCodeUnknown
}

// probeErrorToJSON converts a probe error to JSON with its failure reason.
func probeErrorToJSON(probeErr *reconnect.ProbeError) *JSONError {
	var code, suggestion string

	switch probeErr.Reason {
	case reconnect.ProbeFailTimeout:
		code = ErrCodeProbeTimeout
		suggestion = "Check the device is powered and on this network"
	case reconnect.ProbeFailRefused:
		code = ErrCodeProbeRefused
		suggestion = "The device is up but uhttpd isn't listening yet; try again shortly"
	case reconnect.ProbeFailAuth:
		code = ErrCodeAuthFailed
		suggestion = "Check the device username and password"
	case reconnect.ProbeFailRPC:
		code = ErrCodeRPCFailed
		suggestion = "The device is back but rejected the call; check its rpcd ACLs"
	case reconnect.ProbeFailUnreachable:
		code = ErrCodeTransportFailed
		suggestion = "Check your route to the device's subnet"
	default:
		code = ErrCodeTransportFailed
	}

	return &JSONError{
		Code:       code,
		Message:    probeErr.Error(),
		Suggestion: suggestion,
		Details: map[string]interface{}{
			"reason":  probeErr.Reason.String(),
			"address": probeErr.Address,
		},
	}
}
