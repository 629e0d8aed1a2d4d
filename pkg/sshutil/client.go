// Package sshutil dials OpenWrt routers over SSH.
//
// Routers run dropbear with a single root account, often with only a
// password set, and present a fresh host key every time they are
// reflashed. Host aliases from ~/.ssh/config are honoured so a router can
// be named the same way it is for ssh(1).
package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/halowlab/halowdiag/internal/errors"
	"golang.org/x/crypto/ssh"
)

// DefaultTimeout bounds the TCP dial and the handshake when Options has none.
const DefaultTimeout = 10 * time.Second

// Client is an SSH connection to a router.
type Client struct {
	*ssh.Client
	Host    string // as given to Dial: alias, host, user@host or host:port
	Address string // resolved host:port
}

// Options configures Dial.
type Options struct {
	Timeout time.Duration

	// Password enables password and keyboard-interactive auth, tried after
	// any keys.
	Password string

	// Home is where .ssh lives. Empty means the user's home directory.
	Home string

	// Warn receives notes that don't stop the dial.
	Warn func(msg string)
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Home == "" {
		o.Home = homeDir()
	}
	if o.Warn == nil {
		o.Warn = func(string) {}
	}
	return o
}

// Dial connects to the router named by host. host may be an alias from
// ~/.ssh/config, a hostname or address, user@host, host:port or
// [ipv6]:port. The user defaults to root.
func Dial(host string, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	dest := resolveDestination(host, opts)

	plan := planAuth(dest, opts)
	if len(plan.methods) == 0 {
		return nil, errNoAuth(host, plan.encrypted)
	}

	hostKeys, err := hostKeyCallback(knownHostsPath(opts.Home))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Couldn't read ~/.ssh/known_hosts",
			"Check the file's permissions, or move it aside to start fresh.")
	}

	address := dest.address()
	conn, err := net.DialTimeout("tcp", address, opts.Timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, &ssh.ClientConfig{
		User:            dest.user,
		Auth:            plan.methods,
		HostKeyCallback: hostKeys,
		Timeout:         opts.Timeout,
	})
	if err != nil {
		conn.Close()
		return nil, handshakeError(host, err, plan.encrypted)
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// handshakeError turns a failed handshake into a structured error. Host
// key problems carry their own message; login failures are ErrAuth.
func handshakeError(host string, err error, encrypted []string) error {
	var changed *HostKeyChangedError
	if stderrors.As(err, &changed) {
		return errors.New(errors.ErrTransport, changed.Error(), changed.Suggestion())
	}
	var unknown *UnknownHostKeyError
	if stderrors.As(err, &unknown) {
		return errors.New(errors.ErrTransport, unknown.Error(), unknown.Suggestion())
	}

	code := errors.ErrTransport
	if isAuthFailure(err) {
		code = errors.ErrAuth
	}
	return errors.WrapWithCode(err, code,
		fmt.Sprintf("SSH login to '%s' didn't go through", host),
		suggestionForHandshakeError(err, encrypted))
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the host as given to Dial.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port.
func (c *Client) GetAddress() string {
	return c.Address
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}
