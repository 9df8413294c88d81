package log

import (
	"bytes"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// resetForTest Setup의 sync.Once와 logrus 전역 상태를 초기화합니다.
func resetForTest() {
	setupOnce = sync.Once{}
	globalCloser = nil
	globalSetupErr = nil

	logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetReportCaller(false)
	logrus.SetFormatter(&logrus.TextFormatter{})
}

// safeBuffer 동시 Fire 호출에서 사용할 수 있는 버퍼입니다.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
