package rpc

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Default credentials of a HaLow dongle's rpcd login.
const (
	DefaultUsername = "dongle"
	DefaultPassword = "dongle"
)

// Interceptor inspects every successful reply before it is delivered.
// Returning an error fails the call.
type Interceptor func(ctx context.Context, resp *Response, m Method) error

// Client talks to one device's ubus endpoint. It is safe for concurrent use.
// Concurrent calls that find the session expired share a single login.
type Client struct {
	mu           sync.Mutex
	baseURL      string
	session      Session
	interceptors []Interceptor

	username  string
	password  string
	transport Transport
	now       func() time.Time
	log       logger.Logger

	lastID atomic.Uint64
	logins singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithCredentials sets the login user and password.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithClock sets the time source used for session expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for the device at baseURL. A bare host is
// expanded to http://<host>/ubus.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  NormalizeURL(baseURL),
		username: DefaultUsername,
		password: DefaultPassword,
		now:      time.Now,
		log:      logger.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(DefaultTimeout)
	}
	return c
}

// Call invokes object.method with args and returns the unwrapped result.
// Errors are always returned.
func (c *Client) Call(ctx context.Context, object, method string, args any) (json.RawMessage, error) {
	return c.invoke(ctx, Method{Object: object, Method: method, Reject: true}, args)
}

// AddInterceptor registers fn to run on every successful reply.
func (c *Client) AddInterceptor(fn Interceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptors = append(c.interceptors, fn)
}

// SessionID returns the current session id, or "" before the first login.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.ID
}

// SetSessionID adopts a session obtained elsewhere. It is assumed valid
// for DefaultSessionTTL. An empty id forces a login on the next call.
func (c *Client) SetSessionID(sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sid == "" {
		c.session = Session{}
		return
	}
	c.session = Session{ID: sid, ExpiresAt: c.now().Add(DefaultSessionTTL)}
}

// BaseURL returns the endpoint calls are sent to.
func (c *Client) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

// SetBaseURL points the client at a new endpoint, e.g. after the device
// came back on a different address. The session is kept.
func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = NormalizeURL(u)
}

func (c *Client) invoke(ctx context.Context, m Method, args any) (json.RawMessage, error) {
	endpoint := c.BaseURL()
	if endpoint == "" {
		return nil, errors.New(errors.ErrTransport,
			"No URL set for remote RPC call",
			"Configure a url for the device.")
	}

	sid, err := c.ensureSession(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	req := NewRequest(c.lastID.Add(1), sid, m.Object, m.Method, args)
	c.log.Debug("rpc call #%d %s/%s", req.ID, m.Object, m.Method)

	resp, err := c.transport.RoundTrip(ctx, endpoint, req)
	if err != nil {
		if !errors.IsCode(err, errors.ErrTransport) {
			err = newTransportError(endpoint, err)
		}
		return nil, err
	}

	return c.parseReply(ctx, m, sid, resp)
}

// parseReply classifies a reply and unwraps its payload.
func (c *Client) parseReply(ctx context.Context, m Method, sid string, resp *Response) (json.RawMessage, error) {
	if resp.Error != nil {
		if resp.Error.Code == CodeAccessDenied || resp.Error.Code == CodeSessionTimeout {
			c.dropSession(sid)
		}
		return nil, newRPCError(m, resp.Error.Code, resp.Error.Message)
	}
	if isNull(resp.Result) {
		return nil, newRPCError(m, CodeInternalError, "reply has no result")
	}

	data := resp.Result
	if code, payload, ok := splitStatus(resp.Result); ok {
		if code != StatusOK {
			return nil, newRPCError(m, code, StatusText(code))
		}
		data = payload
	}

	if m.Expect != "" {
		data = expectKey(data, m.Expect)
	}

	c.mu.Lock()
	interceptors := make([]Interceptor, len(c.interceptors))
	copy(interceptors, c.interceptors)
	c.mu.Unlock()

	for _, fn := range interceptors {
		if err := fn(ctx, resp, m); err != nil {
			return nil, err
		}
	}

	return data, nil
}

// expectKey extracts key from an object payload. Missing keys and
// non-object payloads yield nil.
func expectKey(data json.RawMessage, key string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	return obj[key]
}

// ensureSession returns a valid session id, logging in if needed.
func (c *Client) ensureSession(ctx context.Context, endpoint string) (string, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s.Valid(c.now()) {
		return s.ID, nil
	}

	// The login outlives the caller that started it: others may be waiting
	// on it. The transport's own timeout still bounds it.
	loginCtx := context.WithoutCancel(ctx)
	ch := c.logins.DoChan("login", func() (interface{}, error) {
		// Another caller may have finished a login since we looked.
		c.mu.Lock()
		s := c.session
		c.mu.Unlock()
		if s.Valid(c.now()) {
			return s.ID, nil
		}
		return c.login(loginCtx, endpoint)
	})

	select {
	case <-ctx.Done():
		return "", newTransportError(endpoint, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		if r.Shared {
			c.log.Debug("rpc joined in-flight login to %s", endpoint)
		}
		return r.Val.(string), nil
	}
}

// loginReply is the data member of a successful session/login.
type loginReply struct {
	Session string `json:"ubus_rpc_session"`
	Expires int64  `json:"expires"`
}

func (c *Client) login(ctx context.Context, endpoint string) (string, error) {
	c.log.Debug("rpc login to %s as %s", endpoint, c.username)

	req := NewRequest(c.lastID.Add(1), ZeroSessionID, "session", "login", map[string]string{
		"username": c.username,
		"password": c.password,
	})

	resp, err := c.transport.RoundTrip(ctx, endpoint, req)
	if err != nil {
		if !errors.IsCode(err, errors.ErrTransport) {
			err = newTransportError(endpoint, err)
		}
		return "", err
	}

	if resp.Error != nil {
		return "", newAuthError(endpoint, resp.Error.Message, nil)
	}

	code, payload, ok := splitStatus(resp.Result)
	if !ok || payload == nil {
		return "", newAuthError(endpoint, "unexpected login reply: "+string(resp.Result), nil)
	}
	if code != StatusOK {
		return "", newAuthError(endpoint, StatusText(code), nil)
	}

	var reply loginReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return "", newAuthError(endpoint, "malformed login reply", err)
	}
	if reply.Session == "" {
		return "", newAuthError(endpoint, "login reply has no session", nil)
	}

	s := Session{
		ID:        reply.Session,
		ExpiresAt: c.now().Add(time.Duration(reply.Expires) * time.Second),
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.log.Debug("rpc session established, expires in %ds", reply.Expires)
	return s.ID, nil
}

// dropSession forgets sid if it is still current, so the next call logs in.
func (c *Client) dropSession(sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.ID == sid {
		c.session = Session{}
	}
}
