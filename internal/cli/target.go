package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/halowlab/halowdiag/internal/config"
	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/exec"
	"github.com/halowlab/halowdiag/internal/logger"
	"github.com/halowlab/halowdiag/internal/rpc"
	"github.com/halowlab/halowdiag/pkg/sshutil"
	"golang.org/x/term"
)

// defaultUbusUser is the LuCI login used when a ubus target names none.
const defaultUbusUser = "root"

// Connection is an open target: an executor plus, for ubus targets, the
// RPC client behind it.
type Connection struct {
	Name     string
	Via      string
	Executor exec.Executor

	// RPC is set for ubus targets. Devices configured with proxy: true
	// relay through it.
	RPC *rpc.Client

	close func() error
}

// Close releases the connection.
func (c *Connection) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// connectTarget opens the target selected by --target and --via.
// Replaced in tests.
var connectTarget = func() (*Connection, error) {
	name, t, err := cfg.ResolveTarget(targetFlag)
	if err != nil {
		return nil, err
	}
	if viaFlag != "" {
		t.Via = viaFlag
	}
	if t.Via == "" {
		t.Via = config.ViaLocal
	}
	return openTarget(name, t, cfg.Diagnostics.PollHelper, logger.Named(log, name))
}

func openTarget(name string, t config.Target, pollHelper string, log logger.Logger) (*Connection, error) {
	switch t.Via {
	case config.ViaLocal:
		return &Connection{Name: name, Via: t.Via, Executor: exec.NewLocalExecutor(pollHelper, log)}, nil

	case config.ViaSSH:
		hosts := t.SSH
		if len(hosts) == 0 && name != config.ViaLocal {
			hosts = []string{name}
		}
		client, err := dialFirst(hosts, sshutil.Options{
			Timeout:  t.Timeout,
			Password: t.Password,
			Warn:     func(msg string) { log.Warn("%s", msg) },
		}, log)
		if err != nil {
			return nil, err
		}
		ex := exec.NewSSHExecutor(client, pollHelper, log)
		return &Connection{Name: name, Via: t.Via, Executor: ex, close: ex.Close}, nil

	case config.ViaUbus:
		if t.URL == "" {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Target '%s' has no url", name),
				"Set url: <router address> on the target to use --via ubus.")
		}
		user := t.Username
		if user == "" {
			user = defaultUbusUser
		}
		password, err := passwordFor(name, user, t.Password)
		if err != nil {
			return nil, err
		}
		client := rpc.NewClient(t.URL,
			rpc.WithCredentials(user, password),
			rpc.WithTransport(rpc.NewHTTPTransport(t.Timeout)),
			rpc.WithLogger(log))
		return &Connection{
			Name:     name,
			Via:      t.Via,
			Executor: exec.NewUbusExecutor(client, pollHelper, log),
			RPC:      client,
		}, nil

	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown executor '%s'", t.Via),
			"Use one of: local, ssh, ubus.")
	}
}

// dialFirst tries each SSH host in order and returns the first that
// connects.
func dialFirst(hosts []string, opts sshutil.Options, log logger.Logger) (*sshutil.Client, error) {
	if len(hosts) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No SSH host to connect to",
			"Add ssh: [root@<router>] to the target in "+config.ConfigFileName+".")
	}

	var lastErr error
	for _, host := range hosts {
		client, err := sshutil.Dial(host, opts)
		if err == nil {
			log.Debug("connected to %s (%s)", host, client.GetAddress())
			return client, nil
		}
		log.Debug("ssh %s: %v", host, err)
		lastErr = err
	}
	if len(hosts) == 1 {
		return nil, lastErr
	}
	return nil, errors.WrapWithCode(lastErr, errors.ErrTransport,
		fmt.Sprintf("None of the %d SSH hosts answered", len(hosts)),
		"Check the router is powered and reachable, or run with --debug to see each attempt.")
}

// noPrompt disables the password prompt, for commands that open several
// targets at once.
var noPrompt bool

// passwordFor returns the configured password, prompting for one when it
// is empty and stdin is a terminal.
func passwordFor(name, user, password string) (string, error) {
	if password != "" || noPrompt || !term.IsTerminal(int(os.Stdin.Fd())) {
		return password, nil
	}
	return promptPassword(fmt.Sprintf("Password for %s@%s", user, name))
}

// promptPassword asks for a password. Replaced in tests.
var promptPassword = func(title string) (string, error) {
	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	)
	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrAuth,
			"No password entered",
			"Set password: on the target in "+config.ConfigFileName+" to skip the prompt.")
	}
	return password, nil
}
