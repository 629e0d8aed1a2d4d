// Package rpc is a client for the ubus JSON-RPC endpoint that OpenWRT's
// uhttpd exposes at /ubus. It logs in once, keeps the session while it is
// valid and attaches it to every call.
package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ZeroSessionID is the anonymous session used for the login call itself.
const ZeroSessionID = "00000000000000000000000000000000"

// DefaultSessionTTL matches rpcd's default session timeout. It is used when
// a session id is injected with SetSessionID.
const DefaultSessionTTL = 300 * time.Second

// Session is an authenticated ubus session.
type Session struct {
	ID        string
	ExpiresAt time.Time
}

// Valid reports whether the session can still be used at now.
// A session is expired once now is past ExpiresAt.
func (s Session) Valid(now time.Time) bool {
	return s.ID != "" && !now.After(s.ExpiresAt)
}

// Request is the JSON-RPC 2.0 envelope for a ubus call.
// Params is [session id, object, method, args].
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// NewRequest builds a "call" request.
func NewRequest(id uint64, sid, object, method string, args any) *Request {
	if args == nil {
		args = map[string]any{}
	}
	return &Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "call",
		Params:  []any{sid, object, method, args},
	}
}

// Response is the JSON-RPC 2.0 reply envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the JSON-RPC error member.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC error codes emitted by uhttpd-mod-ubus.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeAccessDenied   = -32002
	CodeSessionTimeout = -32003
)

// ubus status codes carried in the first element of a result array.
const (
	StatusOK = iota
	StatusInvalidCommand
	StatusInvalidArgument
	StatusMethodNotFound
	StatusNotFound
	StatusNoData
	StatusPermissionDenied
	StatusTimeout
	StatusNotSupported
	StatusUnknownError
	StatusConnectionFailed
)

var statusText = map[int]string{
	StatusOK:               "Success",
	StatusInvalidCommand:   "Invalid command",
	StatusInvalidArgument:  "Invalid argument",
	StatusMethodNotFound:   "Method not found",
	StatusNotFound:         "Resource not found",
	StatusNoData:           "No data received",
	StatusPermissionDenied: "Permission denied",
	StatusTimeout:          "Request timeout",
	StatusNotSupported:     "Operation not supported",
	StatusUnknownError:     "Unspecified error",
	StatusConnectionFailed: "Connection failed",
}

// StatusText returns a description of a ubus status code.
func StatusText(code int) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown status %d", code)
}

// isNull reports whether raw is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// splitStatus decodes a ubus status array [code] or [code, data].
// ok is false when raw is not such an array.
func splitStatus(raw json.RawMessage) (code int, data json.RawMessage, ok bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return 0, nil, false
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(trimmed, &parts); err != nil || len(parts) == 0 || len(parts) > 2 {
		return 0, nil, false
	}
	if err := json.Unmarshal(parts[0], &code); err != nil {
		return 0, nil, false
	}
	if len(parts) == 2 {
		data = parts[1]
	}
	return code, data, true
}

// NormalizeURL turns a bare host or URL into the ubus endpoint URL.
// "10.42.0.1" becomes "http://10.42.0.1/ubus".
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	scheme, rest, _ := strings.Cut(raw, "://")
	if !strings.Contains(rest, "/") {
		return scheme + "://" + rest + "/ubus"
	}
	return strings.TrimSuffix(raw, "/")
}
