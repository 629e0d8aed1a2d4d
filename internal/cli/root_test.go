package cli

import (
	stderrors "errors"
	"testing"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsUnknownCommandError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unknown command", stderrors.New(`unknown command "pign" for "halowdiag"`), true},
		{"unknown flag", stderrors.New(`unknown flag: --foo`), true},
		{"unknown shorthand", stderrors.New(`unknown shorthand flag: 'z' in -z`), true},
		{"other error", stderrors.New("connection failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnknownCommandError(tt.err))
		})
	}
}

func TestExtractUnknownCommand(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"standard cobra format", stderrors.New(`unknown command "pign" for "halowdiag"`), "pign"},
		{"no quotes", stderrors.New("unknown command"), ""},
		{"unclosed quote", stderrors.New(`unknown command "pign`), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractUnknownCommand(tt.err))
		})
	}
}

func TestUnknownCommandMessage(t *testing.T) {
	t.Run("close match", func(t *testing.T) {
		msg := unknownCommandMessage(stderrors.New(`unknown command "pign" for "halowdiag"`))
		assert.Contains(t, msg, "Unknown command 'pign'")
		assert.Contains(t, msg, "Did you mean ping")
	})

	t.Run("no match", func(t *testing.T) {
		msg := unknownCommandMessage(stderrors.New(`unknown command "zzzzzzzz" for "halowdiag"`))
		assert.Contains(t, msg, "Unknown command 'zzzzzzzz'")
		assert.Contains(t, msg, "halowdiag --help")
		assert.NotContains(t, msg, "Did you mean")
	})

	t.Run("unknown flag", func(t *testing.T) {
		msg := unknownCommandMessage(stderrors.New("unknown flag: --foo"))
		assert.Contains(t, msg, "unknown flag: --foo")
		assert.Contains(t, msg, "halowdiag --help")
	})
}

func TestRenderError(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		err := errors.New(errors.ErrConfig, "Unknown target 'mseh'", "Did you mean mesh?")
		out := renderError(err)
		assert.Contains(t, out, "Unknown target 'mseh'")
		assert.Contains(t, out, "Did you mean mesh?")
		assert.NotRegexp(t, `\n$`, out)
	})

	t.Run("plain", func(t *testing.T) {
		assert.Equal(t, "✗ boom", renderError(stderrors.New("boom")))
	})
}

func TestRootCommandFlags(t *testing.T) {
	for _, name := range []string{"config", "via", "target", "device", "plain", "debug", "json"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
	// -t belongs to iperf3 client's --time.
	assert.Empty(t, rootCmd.PersistentFlags().Lookup("target").Shorthand)
}

func TestRootCommandSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"ping", "iperf3", "traceroute", "nslookup", "arp-scan", "exec", "device", "reconnect", "targets", "version", "completion"} {
		assert.Contains(t, names, want)
	}
}
