package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 10 * time.Second

// Transport delivers a request to an endpoint and returns the reply.
// Implementations return errors coded errors.ErrTransport.
type Transport interface {
	RoundTrip(ctx context.Context, endpoint string, req *Request) (*Response, error)
}

// HTTPTransport posts the envelope as JSON straight to the endpoint.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport creates an HTTP transport with the given timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{Client: &http.Client{Timeout: timeout}}
}

// RoundTrip implements Transport.
func (t *HTTPTransport) RoundTrip(ctx context.Context, endpoint string, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, newTransportError(endpoint, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newTransportError(endpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(httpReq)
	if err != nil {
		return nil, newTransportError(endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 256))
		return nil, newTransportError(endpoint, fmt.Errorf("HTTP %d: %s", res.StatusCode, bytes.TrimSpace(snippet)))
	}

	var reply Response
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		return nil, newTransportError(endpoint, fmt.Errorf("invalid JSON-RPC reply: %w", err))
	}
	return &reply, nil
}

// Caller performs a ubus call on some other client, typically the local
// router's own endpoint.
type Caller interface {
	Call(ctx context.Context, object, method string, args any) (json.RawMessage, error)
}

// ProxyTransport relays the envelope through the local router's
// "dongle request" ubus method, which forwards it to the device behind it.
// This reaches devices that are only routable from the router.
type ProxyTransport struct {
	Local Caller
}

// proxyRequest is the argument object of "dongle request".
type proxyRequest struct {
	URI  string   `json:"uri"`
	Body *Request `json:"body"`
}

// RoundTrip implements Transport.
func (t *ProxyTransport) RoundTrip(ctx context.Context, endpoint string, req *Request) (*Response, error) {
	raw, err := t.Local.Call(ctx, "dongle", "request", proxyRequest{URI: endpoint, Body: req})
	if err != nil {
		return nil, newTransportError(endpoint+" (via dongle request)", err)
	}

	var reply Response
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, newTransportError(endpoint+" (via dongle request)", fmt.Errorf("invalid relayed reply: %w", err))
	}
	return &reply, nil
}
