package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyChangedError means known_hosts has a different key for the
// router. After a reflash this is expected.
type HostKeyChangedError struct {
	Host string
}

func (e *HostKeyChangedError) Error() string {
	return fmt.Sprintf("Host key for %s doesn't match ~/.ssh/known_hosts", e.Host)
}

// Suggestion explains how to clear the stale key.
func (e *HostKeyChangedError) Suggestion() string {
	return fmt.Sprintf("If the router was just reflashed, forget the old key with: ssh-keygen -R %s\n"+
		"Otherwise something else may be answering at that address.", e.Host)
}

// UnknownHostKeyError means known_hosts has no entry for the router.
type UnknownHostKeyError struct {
	Host string
}

func (e *UnknownHostKeyError) Error() string {
	return fmt.Sprintf("%s isn't in ~/.ssh/known_hosts", e.Host)
}

// Suggestion explains how to trust the router.
func (e *UnknownHostKeyError) Suggestion() string {
	return fmt.Sprintf("Connect once with ssh to accept its key, or run: ssh-keyscan %s >> ~/.ssh/known_hosts", e.Host)
}

// hostKeyCallback checks keys against path. With no known_hosts file any
// key is accepted, which matches a fresh workstation talking to a fresh
// router.
func hostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	check, err := knownhosts.New(path)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := check(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if !stderrors.As(err, &keyErr) {
			return err
		}
		host := hostOnly(hostname)
		if len(keyErr.Want) > 0 {
			return &HostKeyChangedError{Host: host}
		}
		return &UnknownHostKeyError{Host: host}
	}, nil
}

func hostOnly(hostport string) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport
	}
	return host
}
