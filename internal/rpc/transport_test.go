package rpc

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ubusServer emulates uhttpd-mod-ubus well enough for the client.
func ubusServer(t *testing.T, handle func(req Request) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ubus" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  handle(req),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPTransport_EndToEnd(t *testing.T) {
	srv := ubusServer(t, func(req Request) any {
		if req.Params[1] == "session" {
			args := req.Params[3].(map[string]any)
			if args["username"] != "dongle" || args["password"] != "dongle" {
				return []any{6}
			}
			return []any{0, map[string]any{"ubus_rpc_session": "c0ffee", "expires": 300}}
		}
		if req.Params[0] != "c0ffee" {
			return []any{6}
		}
		return []any{0, map[string]any{"values": map[string]any{"lan": map[string]any{"ipaddr": "10.41.0.1"}}}}
	})

	c := NewClient(srv.URL)
	raw, err := c.Call(context.Background(), "uci", "get", map[string]string{"config": "network"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"values":{"lan":{"ipaddr":"10.41.0.1"}}}`, string(raw))
	assert.Equal(t, "c0ffee", c.SessionID())
}

func TestHTTPTransport_WrongCredentials(t *testing.T) {
	srv := ubusServer(t, func(req Request) any { return []any{6} })

	c := NewClient(srv.URL, WithCredentials("root", "wrong"))
	_, err := c.Call(context.Background(), "system", "board", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))
}

func TestHTTPTransport_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(time.Second)
	_, err := tr.RoundTrip(context.Background(), srv.URL+"/ubus", NewRequest(1, ZeroSessionID, "system", "board", nil))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTransport))
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestHTTPTransport_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>login</html>"))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(time.Second)
	_, err := tr.RoundTrip(context.Background(), srv.URL, NewRequest(1, ZeroSessionID, "system", "board", nil))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTransport))
}

func TestHTTPTransport_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr := NewHTTPTransport(time.Second)
	_, err := tr.RoundTrip(context.Background(), url, NewRequest(1, ZeroSessionID, "system", "board", nil))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTransport))
}

func TestNewHTTPTransport_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewHTTPTransport(0).Client.Timeout)
	assert.Equal(t, 3*time.Second, NewHTTPTransport(3*time.Second).Client.Timeout)
}

type relayCaller struct {
	object, method string
	args           any
	reply          json.RawMessage
	err            error
}

func (r *relayCaller) Call(_ context.Context, object, method string, args any) (json.RawMessage, error) {
	r.object, r.method, r.args = object, method, args
	return r.reply, r.err
}

func TestProxyTransport(t *testing.T) {
	local := &relayCaller{reply: json.RawMessage(`{"jsonrpc":"2.0","id":7,"result":[0,{"up":true}]}`)}
	tr := &ProxyTransport{Local: local}

	req := NewRequest(7, "sid", "network.interface.lan", "status", nil)
	resp, err := tr.RoundTrip(context.Background(), "http://10.41.0.1/ubus", req)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), resp.ID)
	assert.JSONEq(t, `[0,{"up":true}]`, string(resp.Result))
	assert.Equal(t, "dongle", local.object)
	assert.Equal(t, "request", local.method)

	body, err := json.Marshal(local.args)
	require.NoError(t, err)
	assert.JSONEq(t, `{"uri":"http://10.41.0.1/ubus","body":{"jsonrpc":"2.0","id":7,"method":"call","params":["sid","network.interface.lan","status",{}]}}`, string(body))
}

func TestProxyTransport_Errors(t *testing.T) {
	cause := stderrors.New("dongle unreachable")
	tr := &ProxyTransport{Local: &relayCaller{err: cause}}

	_, err := tr.RoundTrip(context.Background(), "http://10.41.0.1/ubus", NewRequest(1, "sid", "a", "b", nil))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTransport))
	assert.ErrorIs(t, err, cause)

	tr = &ProxyTransport{Local: &relayCaller{reply: json.RawMessage(`"oops"`)}}
	_, err = tr.RoundTrip(context.Background(), "http://10.41.0.1/ubus", NewRequest(1, "sid", "a", "b", nil))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTransport))
}
