package sshutil

import (
	"fmt"
	"strings"
)

func suggestionForDialError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return "The router answered but nothing listens on that port. Check dropbear is running: /etc/init.d/dropbear status"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "No route to the router. Check you're on its LAN or that the HaLow link is up."
	case strings.Contains(msg, "i/o timeout"), strings.Contains(msg, "timed out"):
		return "The connection timed out. The router may be rebooting or the link may be down."
	case strings.Contains(msg, "no such host"):
		return "The name didn't resolve. Use the router's IP, or add it to ~/.ssh/config."
	default:
		return "Check the router is powered and reachable, e.g. with: ping <address>"
	}
}

func suggestionForHandshakeError(err error, encrypted []string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"):
		if len(encrypted) > 0 {
			return fmt.Sprintf("Your key %s needs a passphrase. Load it with: ssh-add %s", encrypted[0], encrypted[0])
		}
		return "The router refused the login. Check the target's password, or that your key is in /etc/dropbear/authorized_keys."
	case strings.Contains(msg, "host key"):
		return "Host key verification failed. If the router was reflashed, run: ssh-keygen -R <address>"
	case strings.Contains(msg, "EOF"), strings.Contains(msg, "connection reset"):
		return "The router closed the connection during login. dropbear may be limiting connections; try again shortly."
	default:
		return "Try the same login with ssh -v to see where it stops."
	}
}
