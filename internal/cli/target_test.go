package cli

import (
	"testing"
	"time"

	"github.com/halowlab/halowdiag/internal/config"
	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/exec"
	"github.com/halowlab/halowdiag/internal/logger"
	"github.com/halowlab/halowdiag/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenTarget_Local(t *testing.T) {
	conn, err := openTarget("local", config.Target{Via: config.ViaLocal}, "/usr/libexec/command-poll", logger.Noop())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "local", conn.Name)
	assert.IsType(t, &exec.LocalExecutor{}, conn.Executor)
	assert.Nil(t, conn.RPC)
}

func TestOpenTarget_Ubus(t *testing.T) {
	conn, err := openTarget("dongle", config.Target{
		Via:      config.ViaUbus,
		URL:      "10.41.0.1",
		Password: "secret",
		Timeout:  2 * time.Second,
	}, "", logger.Noop())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, config.ViaUbus, conn.Via)
	assert.IsType(t, &exec.UbusExecutor{}, conn.Executor)
	assert.NotNil(t, conn.RPC)
}

func TestOpenTarget_UbusWithoutURL(t *testing.T) {
	_, err := openTarget("dongle", config.Target{Via: config.ViaUbus}, "", logger.Noop())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "has no url")
}

func TestOpenTarget_UnknownExecutor(t *testing.T) {
	_, err := openTarget("ap", config.Target{Via: "telnet"}, "", logger.Noop())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "Unknown executor 'telnet'")
}

func TestDialFirst_NoHosts(t *testing.T) {
	_, err := dialFirst(nil, sshutil.Options{}, logger.Noop())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestConnectTarget_ViaOverride(t *testing.T) {
	useConfig(t, config.DefaultConfig())
	origVia, origTarget := viaFlag, targetFlag
	t.Cleanup(func() { viaFlag, targetFlag = origVia, origTarget })

	viaFlag, targetFlag = "bogus", ""
	_, err := connectTarget()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown executor 'bogus'")
}

func TestConnectTarget_UnknownTarget(t *testing.T) {
	c := config.DefaultConfig()
	c.Targets["mesh"] = config.Target{Via: config.ViaLocal}
	useConfig(t, c)
	origTarget := targetFlag
	t.Cleanup(func() { targetFlag = origTarget })

	targetFlag = "mseh"
	_, err := connectTarget()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Did you mean mesh?")
}

func TestConnection_CloseWithoutCloser(t *testing.T) {
	assert.NoError(t, (&Connection{}).Close())
}
