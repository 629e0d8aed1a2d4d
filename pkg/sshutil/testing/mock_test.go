package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_Responses(t *testing.T) {
	m := NewMockClient("halow-ap")
	m.SetCommandResponse("uname -n", CommandResponse{Stdout: []byte("halow-ap\n")})
	m.SetPatternResponse(`^ping `, CommandResponse{Stdout: []byte("64 bytes from 10.42.0.1: time=1.0 ms\n")})

	out, _, code, err := m.ExecContext(context.Background(), "uname -n")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "halow-ap\n", string(out))

	out, _, _, err = m.ExecContext(context.Background(), "ping -c 1 10.42.0.1")
	require.NoError(t, err)
	assert.Contains(t, string(out), "time=1.0 ms")

	_, stderr, code, err := m.ExecContext(context.Background(), "iperf3 -s")
	require.NoError(t, err)
	assert.Equal(t, 127, code)
	assert.Contains(t, string(stderr), "not found")

	assert.Equal(t, []string{"uname -n", "ping -c 1 10.42.0.1", "iperf3 -s"}, m.Commands())
}

func TestMockClient_BlockHonoursContext(t *testing.T) {
	m := NewMockClient("halow-ap")
	m.SetCommandResponse("sleep", CommandResponse{Block: make(chan struct{})})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, code, err := m.ExecContext(ctx, "sleep")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, -1, code)
}

func TestMockClient_Closed(t *testing.T) {
	m := NewMockClient("halow-ap")
	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())

	_, _, _, err := m.ExecContext(context.Background(), "true")
	assert.Error(t, err)
}
