package exec

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	object, method string
	args           any
}

type fakeCaller struct {
	calls []call
	reply string
	err   error
}

func (f *fakeCaller) Call(_ context.Context, object, method string, args any) (json.RawMessage, error) {
	f.calls = append(f.calls, call{object, method, args})
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.reply), nil
}

func TestUbusExecutor_Execute(t *testing.T) {
	fc := &fakeCaller{reply: `{"code":1,"stdout":"100% packet loss\n","stderr":""}`}
	e := NewUbusExecutor(fc, "", nil)

	res, err := e.Execute(context.Background(), "ping", []string{"-c", "1", "10.42.0.9"})

	require.NoError(t, err)
	assert.Equal(t, Result{Stdout: "100% packet loss\n", ExitCode: 1}, res)

	require.Len(t, fc.calls, 1)
	assert.Equal(t, "file", fc.calls[0].object)
	assert.Equal(t, "exec", fc.calls[0].method)

	body, err := json.Marshal(fc.calls[0].args)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"ping","params":["-c","1","10.42.0.9"]}`, string(body))
}

func TestUbusExecutor_Poll(t *testing.T) {
	fc := &fakeCaller{reply: `{"code":0,"stdout":"iperf3: started\n"}`}
	e := NewUbusExecutor(fc, "", nil)

	out, err := e.Poll(context.Background(), "iperf3", "id-9", []string{"-c", "10.42.0.1"})

	require.NoError(t, err)
	assert.Equal(t, "iperf3: started\n", out)

	req := fc.calls[0].args.(fileExecRequest)
	assert.Equal(t, DefaultPollHelper, req.Command)
	assert.Equal(t, []string{"iperf3", "id-9", "-c", "10.42.0.1"}, req.Params)
}

func TestUbusExecutor_CallError(t *testing.T) {
	callErr := errors.New(errors.ErrRPC, "Access denied", "")
	fc := &fakeCaller{err: callErr}
	e := NewUbusExecutor(fc, "", nil)

	_, err := e.Execute(context.Background(), "nslookup", []string{"openwrt.org"})

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, callErr))
}

func TestUbusExecutor_BadReply(t *testing.T) {
	fc := &fakeCaller{reply: `"not an object"`}
	e := NewUbusExecutor(fc, "", nil)

	_, err := e.Execute(context.Background(), "nslookup", nil)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrRPC))
}

var _ Executor = (*UbusExecutor)(nil)
