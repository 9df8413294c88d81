package log

import (
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failWriter struct{ err error }

func (w *failWriter) Write(_ []byte) (int, error) { return 0, w.err }

type errorFormatter struct{}

func (f *errorFormatter) Format(_ *Entry) ([]byte, error) {
	return nil, errors.New("formatting failed")
}

func newTestHook() (*hook, *safeBuffer, *safeBuffer, *safeBuffer, *safeBuffer) {
	mainBuf, critBuf, verbBuf, consBuf := &safeBuffer{}, &safeBuffer{}, &safeBuffer{}, &safeBuffer{}

	h := &hook{
		mainWriter:     mainBuf,
		criticalWriter: critBuf,
		verboseWriter:  verbBuf,
		consoleWriter:  consBuf,
		formatter:      &logrus.TextFormatter{DisableTimestamp: true},
	}

	return h, mainBuf, critBuf, verbBuf, consBuf
}

func newEntry(level Level, msg string) *Entry {
	e := logrus.NewEntry(logrus.New())
	e.Level = level
	e.Message = msg
	return e
}

func TestHook_Routing(t *testing.T) {
	tests := []struct {
		name         string
		level        Level
		wantMain     bool
		wantCritical bool
		wantVerbose  bool
	}{
		{"Error", ErrorLevel, true, true, false},
		{"Warn", WarnLevel, true, false, false},
		{"Info", InfoLevel, true, false, false},
		{"Debug", DebugLevel, false, false, true},
		{"Trace", TraceLevel, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mainBuf, critBuf, verbBuf, consBuf := newTestHook()

			require.NoError(t, h.Fire(newEntry(tt.level, "route-check")))

			assert.Equal(t, tt.wantMain, mainBuf.String() != "", "main")
			assert.Equal(t, tt.wantCritical, critBuf.String() != "", "critical")
			assert.Equal(t, tt.wantVerbose, verbBuf.String() != "", "verbose")
			assert.Contains(t, consBuf.String(), "route-check", "console는 모든 레벨을 수신해야 합니다")
		})
	}
}

func TestHook_CriticalFailureStillWritesMain(t *testing.T) {
	h, mainBuf, _, _, _ := newTestHook()
	writeErr := errors.New("disk full")
	h.criticalWriter = &failWriter{err: writeErr}

	err := h.Fire(newEntry(ErrorLevel, "boom"))

	assert.ErrorIs(t, err, writeErr)
	assert.Contains(t, mainBuf.String(), "boom")
}

func TestHook_ConsoleFailureIgnored(t *testing.T) {
	h, mainBuf, _, _, _ := newTestHook()
	h.consoleWriter = &failWriter{err: errors.New("closed pipe")}

	assert.NoError(t, h.Fire(newEntry(InfoLevel, "hello")))
	assert.Contains(t, mainBuf.String(), "hello")
}

func TestHook_FormatterError(t *testing.T) {
	h, mainBuf, _, _, _ := newTestHook()
	h.formatter = &errorFormatter{}

	assert.Error(t, h.Fire(newEntry(InfoLevel, "x")))
	assert.Empty(t, mainBuf.String())
}

func TestHook_Closed(t *testing.T) {
	h, mainBuf, _, _, consBuf := newTestHook()
	require.NoError(t, h.Close())

	assert.NoError(t, h.Fire(newEntry(ErrorLevel, "after-close")))
	assert.Empty(t, mainBuf.String())
	assert.Empty(t, consBuf.String())
}

func TestHook_ConcurrentFire(t *testing.T) {
	h, mainBuf, _, _, _ := newTestHook()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Fire(newEntry(InfoLevel, "concurrent"))
		}()
	}
	wg.Wait()

	assert.Contains(t, mainBuf.String(), "concurrent")
}
