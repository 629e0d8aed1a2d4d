package sshutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func writeKey(t *testing.T, path string, passphrase string) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	}
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
}

func TestPlanAuth_NothingAvailable(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	opts := Options{Home: t.TempDir()}.withDefaults()

	plan := planAuth(parseHostSpec("10.42.0.1"), opts)
	assert.Empty(t, plan.methods)
	assert.Empty(t, plan.encrypted)
}

func TestPlanAuth_PasswordOnlyRouter(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	opts := Options{Home: t.TempDir(), Password: "halow"}.withDefaults()

	plan := planAuth(parseHostSpec("10.42.0.1"), opts)
	assert.Len(t, plan.methods, 2, "password and keyboard-interactive")
}

func TestPlanAuth_DefaultKeys(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	home := t.TempDir()
	writeKey(t, filepath.Join(home, ".ssh", "id_ed25519"), "")
	writeKey(t, filepath.Join(home, ".ssh", "id_rsa"), "secret")

	plan := planAuth(parseHostSpec("10.42.0.1"), Options{Home: home}.withDefaults())
	assert.Len(t, plan.methods, 1)
	assert.Equal(t, []string{filepath.Join(home, ".ssh", "id_rsa")}, plan.encrypted)
}

func TestPlanAuth_IdentityFileReplacesDefaults(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	home := t.TempDir()
	writeKey(t, filepath.Join(home, ".ssh", "id_ed25519"), "")
	halow := filepath.Join(home, ".ssh", "halow")
	writeKey(t, halow, "secret")

	dest := parseHostSpec("10.42.0.1")
	dest.identityFile = halow
	plan := planAuth(dest, Options{Home: home}.withDefaults())

	assert.Empty(t, plan.methods)
	assert.Equal(t, []string{halow}, plan.encrypted)
}

func TestPlanAuth_WarnsOnUnreadableKey(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".ssh"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".ssh", "id_ecdsa"), []byte("not a key"), 0600))

	var warnings []string
	opts := Options{Home: home, Warn: func(msg string) { warnings = append(warnings, msg) }}.withDefaults()
	plan := planAuth(parseHostSpec("10.42.0.1"), opts)

	assert.Empty(t, plan.methods)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "id_ecdsa")
}

func TestErrNoAuth_PointsAtEncryptedKey(t *testing.T) {
	err := errNoAuth("ap", []string{"/home/op/.ssh/id_ed25519"})
	assert.Contains(t, err.Error(), "ssh-add /home/op/.ssh/id_ed25519")
}

func TestPasswordChallenge(t *testing.T) {
	answers, err := passwordChallenge("halow")("", "", []string{"Password: ", "Again: "}, []bool{false, false})
	require.NoError(t, err)
	assert.Equal(t, []string{"halow", "halow"}, answers)
}
