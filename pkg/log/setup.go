package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	fileExt = "log"

	defaultDir        = "logs"
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 20
)

var (
	setupOnce sync.Once

	// 최초 Setup 호출의 결과를 보관합니다. 재호출 시에는 동일한 결과를 그대로 돌려줍니다.
	globalCloser   io.Closer
	globalSetupErr error
)

// Setup 전역 로거를 초기화하고 레벨별 출력 채널(메인/크리티컬/상세/콘솔)을 구성합니다.
//
// 프로세스 생명주기 동안 단 한 번만 실행되며, 반환된 Closer는 종료 시점에 반드시 닫아야 합니다.
func Setup(opts Options) (io.Closer, error) {
	setupOnce.Do(func() {
		globalCloser, globalSetupErr = setup(opts)
	})

	return globalCloser, globalSetupErr
}

func setup(opts Options) (io.Closer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("유효하지 않은 로그 설정: %w", err)
	}

	level := opts.Level
	if level == 0 {
		level = InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetReportCaller(opts.ReportCaller)

	// 실제 출력은 hook이 담당하므로 기본 출력과 포맷팅은 비활성화합니다.
	logrus.SetFormatter(&silentFormatter{})
	logrus.SetOutput(io.Discard)

	dir := opts.Dir
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("로그 디렉토리 생성 실패: %w", err)
	}

	newRotator := func(suffix string) *lumberjack.Logger {
		name := opts.Name + "." + fileExt
		if suffix != "" {
			name = opts.Name + "." + suffix + "." + fileExt
		}
		return &lumberjack.Logger{
			Filename:   filepath.Join(dir, name),
			MaxSize:    orDefault(opts.MaxSizeMB, defaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, defaultMaxBackups),
			MaxAge:     opts.MaxAge,
			LocalTime:  true,
		}
	}

	h := &hook{formatter: newFormatter(opts)}
	closers := make([]io.Closer, 0, 3)

	mainLogger := newRotator("")
	h.mainWriter = mainLogger
	closers = append(closers, mainLogger)

	if opts.EnableCriticalLog {
		criticalLogger := newRotator("critical")
		h.criticalWriter = criticalLogger
		closers = append(closers, criticalLogger)
	}
	if opts.EnableVerboseLog {
		verboseLogger := newRotator("verbose")
		h.verboseWriter = verboseLogger
		closers = append(closers, verboseLogger)
	}
	if opts.EnableConsoleLog {
		h.consoleWriter = os.Stdout
	}

	logrus.AddHook(h)

	c := &closer{closers: closers, hook: h}

	// Fatal 로그로 프로세스가 종료되기 직전에 버퍼를 비우고 파일을 닫습니다.
	logrus.RegisterExitHandler(func() {
		_ = c.Close()
	})

	return c, nil
}

func newFormatter(opts Options) Formatter {
	prettyfier := func(frame *runtime.Frame) (function string, file string) {
		function = frame.Function + "(line:" + strconv.Itoa(frame.Line) + ")"
		if opts.CallerPathPrefix != "" {
			if cut, found := strings.CutPrefix(function, opts.CallerPathPrefix); found {
				function = "..." + cut
			}
		}
		return function, ""
	}

	if opts.JSONFormat {
		return &JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: prettyfier,
		}
	}

	return &TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  time.RFC3339,
		CallerPrettyfier: prettyfier,
	}
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
