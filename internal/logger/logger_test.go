package logger

import (
	"bytes"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestEnvLogger_DebugNeedsEnv(t *testing.T) {
	buf := captureStdLog(t)
	t.Setenv(DebugEnv, "")

	l := NewEnvLogger("[stream]")
	l.Debug("poll %d", 1)
	assert.Empty(t, buf.String())

	t.Setenv(DebugEnv, "1")
	l.Debug("poll %d", 2)
	assert.Contains(t, buf.String(), "[stream] poll 2")
}

func TestEnvLogger_Levels(t *testing.T) {
	buf := captureStdLog(t)

	l := NewEnvLogger("[rpc]")
	l.Info("login to %s", "10.42.0.1")
	l.Warn("session expired")
	l.Error("call failed: %v", "timeout")

	out := buf.String()
	assert.Contains(t, out, "[rpc] login to 10.42.0.1")
	assert.Contains(t, out, "[rpc] WARN: session expired")
	assert.Contains(t, out, "[rpc] ERROR: call failed: timeout")
}

func TestNoop(t *testing.T) {
	buf := captureStdLog(t)

	l := Noop()
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	assert.Empty(t, buf.String())
}

func TestBufferLogger_RecordsLevels(t *testing.T) {
	l := NewBufferLogger()
	assert.False(t, l.HasLevel("warn"))

	l.Debug("poll %d ok", 1)
	l.Warn("helper missing on %s", "halow-ap")

	assert.Equal(t, []LogMessage{
		{Level: "debug", Message: "poll 1 ok"},
		{Level: "warn", Message: "helper missing on halow-ap"},
	}, l.Snapshot())
	assert.True(t, l.HasLevel("warn"))
	assert.False(t, l.HasLevel("error"))
}

func TestBufferLogger_SnapshotIsACopy(t *testing.T) {
	l := NewBufferLogger()
	l.Info("first")

	snap := l.Snapshot()
	snap[0].Message = "changed"
	l.Info("second")

	assert.Len(t, snap, 1)
	assert.Equal(t, "first", l.Snapshot()[0].Message)
}

func TestBufferLogger_Clear(t *testing.T) {
	l := NewBufferLogger()
	l.Error("reconnect timed out")

	l.Clear()
	assert.Empty(t, l.Snapshot())
	assert.False(t, l.HasLevel("error"))

	l.Info("after clear")
	assert.Len(t, l.Snapshot(), 1)
}

// A stream's poll goroutine and a watchdog's rounds log while the test
// reads. Run with -race to catch unguarded access.
func TestBufferLogger_ConcurrentWritersAndReaders(t *testing.T) {
	l := NewBufferLogger()

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				l.Debug("writer %d poll %d", w, i)
			}
		}(w)
	}

	var otherLevels int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			for _, m := range l.Snapshot() {
				if m.Level != "debug" {
					otherLevels++
				}
			}
			l.HasLevel("error")
		}
	}()

	wg.Wait()
	<-done
	assert.Zero(t, otherLevels)
	assert.Len(t, l.Snapshot(), writers*perWriter)
}

func TestDefault(t *testing.T) {
	original := Default()
	t.Cleanup(func() { SetDefault(original) })

	buf := NewBufferLogger()
	SetDefault(buf)
	Default().Info("via default")

	assert.Same(t, buf, Default())
	require.Len(t, buf.Snapshot(), 1)
}

func TestNamed_LeavesPlainLoggersAlone(t *testing.T) {
	buf := NewBufferLogger()
	assert.Same(t, buf, Named(buf, "rpc"))

	noop := Noop()
	assert.Equal(t, noop, Named(noop, "stream"))
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = NewEnvLogger("")
	var _ Logger = Noop()
	var _ Logger = NewBufferLogger()
	var _ Logger = NewLogrLogger(logr.Discard())
}
