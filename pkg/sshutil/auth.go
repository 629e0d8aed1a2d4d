package sshutil

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/halowlab/halowdiag/internal/errors"
	"golang.org/x/crypto/ssh"
)

// DefaultKeyNames are the identity files tried under ~/.ssh when the host
// has no IdentityFile, in order.
var DefaultKeyNames = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// authPlan is the ordered list of auth methods for one dial.
type authPlan struct {
	methods   []ssh.AuthMethod
	encrypted []string // keys skipped because they need a passphrase
}

// planAuth tries the agent, then keys, then the configured password. Keys
// already loaded in the agent are tried first anyway since dropbear
// accepts the same public key from either source.
func planAuth(dest destination, opts Options) authPlan {
	var plan authPlan

	if m := agentAuth(); m != nil {
		plan.methods = append(plan.methods, m)
	}

	var keyPaths []string
	if dest.identityFile != "" {
		keyPaths = []string{dest.identityFile}
	} else {
		for _, name := range DefaultKeyNames {
			keyPaths = append(keyPaths, filepath.Join(opts.Home, ".ssh", name))
		}
	}

	var signers []ssh.Signer
	for _, path := range keyPaths {
		signer, err := loadKey(path)
		switch {
		case err == nil:
			signers = append(signers, signer)
		case isPassphraseMissing(err):
			plan.encrypted = append(plan.encrypted, path)
		case !os.IsNotExist(err):
			opts.Warn(fmt.Sprintf("skipping key %s: %v", path, err))
		}
	}
	if len(signers) > 0 {
		plan.methods = append(plan.methods, ssh.PublicKeys(signers...))
	}

	if opts.Password != "" {
		plan.methods = append(plan.methods,
			ssh.Password(opts.Password),
			ssh.KeyboardInteractive(passwordChallenge(opts.Password)))
	}
	return plan
}

func loadKey(path string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(pem)
}

func isPassphraseMissing(err error) bool {
	var missing *ssh.PassphraseMissingError
	return stderrors.As(err, &missing)
}

// passwordChallenge answers every keyboard-interactive prompt with the
// password. Some dropbear builds only offer this method.
func passwordChallenge(password string) ssh.KeyboardInteractiveChallenge {
	return func(_, _ string, questions []string, _ []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range answers {
			answers[i] = password
		}
		return answers, nil
	}
}

func errNoAuth(host string, encrypted []string) error {
	suggestion := "Set 'password:' on the target in .halowdiag.yaml, or load a key with: ssh-add"
	if len(encrypted) > 0 {
		suggestion = fmt.Sprintf("%s is passphrase-protected. Load it with: ssh-add %s",
			encrypted[0], encrypted[0])
	}
	return errors.New(errors.ErrAuth,
		fmt.Sprintf("No way to log in to '%s': no agent, no usable key, no password", host),
		suggestion)
}

func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}
