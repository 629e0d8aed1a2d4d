package rpc

import (
	"fmt"

	"github.com/halowlab/halowdiag/internal/errors"
)

// RPCError is a well-formed reply saying the remote method failed.
// It is carried as the cause of an errors.ErrRPC error, so callers can use
// errors.As to get at the upstream code.
type RPCError struct {
	Object  string
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "?"
	}
	return fmt.Sprintf("%s/%s failed with code %d: %s", e.Object, e.Method, e.Code, msg)
}

func newRPCError(m Method, code int, message string) error {
	cause := &RPCError{Object: m.Object, Method: m.Method, Code: code, Message: message}
	suggestion := "Check the arguments and that the method exists on the device (ubus -v list " + m.Object + ")."
	switch code {
	case CodeAccessDenied, StatusPermissionDenied:
		suggestion = "The session isn't allowed to call this. Check the rpcd ACLs for the login user."
	case CodeSessionTimeout:
		suggestion = "The session expired on the device. The next call logs in again."
	}
	return errors.WrapWithCode(cause, errors.ErrRPC,
		fmt.Sprintf("RPC call to %s/%s failed", m.Object, m.Method),
		suggestion)
}

func newTransportError(endpoint string, err error) error {
	return errors.WrapWithCode(err, errors.ErrTransport,
		"Couldn't reach "+endpoint,
		"Check the device is powered and reachable, and that uhttpd is running.")
}

func newAuthError(endpoint, reason string, cause error) error {
	if cause == nil {
		cause = fmt.Errorf("%s", reason)
	}
	return errors.WrapWithCode(cause, errors.ErrAuth,
		"Login to "+endpoint+" was rejected",
		"Check the username and password configured for this device.")
}
