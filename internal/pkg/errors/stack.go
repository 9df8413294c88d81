package errors

import (
	"path/filepath"
	"runtime"
)

// defaultCallerSkip runtime.Callers, captureStack, New/Wrap 계열 함수를 건너뛰어
// 에러를 생성한 호출 지점이 첫 번째 프레임이 되도록 합니다.
const defaultCallerSkip = 3

const maxStackFrames = 5

// StackFrame 스택 트레이스의 한 프레임입니다.
type StackFrame struct {
	File     string
	Line     int
	Function string
}

func captureStack(skip int) []StackFrame {
	pc := make([]uintptr, maxStackFrames)
	n := runtime.Callers(skip, pc)
	if n == 0 {
		return nil
	}

	frames := make([]StackFrame, 0, n)
	iter := runtime.CallersFrames(pc[:n])
	for {
		frame, more := iter.Next()
		frames = append(frames, StackFrame{
			File:     filepath.Base(frame.File),
			Line:     frame.Line,
			Function: frame.Function,
		})
		if !more {
			break
		}
	}

	return frames
}
