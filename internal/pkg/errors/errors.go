// Package errors 타입 기반 에러 분류와 에러 체이닝을 제공합니다.
//
// 모든 에러는 ErrorType으로 분류되며 Wrap으로 컨텍스트를 누적할 수 있습니다.
//
//	err := errors.New(errors.NotFound, "상품 ID를 찾을 수 없습니다")
//
//	if err != nil {
//	    return errors.Wrap(err, errors.Unavailable, "제휴 API 호출 실패")
//	}
//
//	if errors.Is(err, errors.NotFound) {
//	    // ...
//	}
//
// 외부 라이브러리 에러를 감쌀 때는 에러가 발생한 계층에 맞는 타입을 고릅니다.
// 사용자 입력은 InvalidInput, 외부 API는 ExecutionFailed/Unavailable/Timeout,
// 응답 해석은 ParsingFailed를 사용합니다.
package errors

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// AppError 애플리케이션 전역에서 사용하는 표준 에러입니다.
type AppError struct {
	errType ErrorType
	message string
	cause   error
	stack   []StackFrame
}

func (e *AppError) Type() ErrorType {
	return e.errType
}

func (e *AppError) Message() string {
	return e.message
}

func (e *AppError) Stack() []StackFrame {
	return e.stack
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.errType, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.errType, e.message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Format %+v 사용 시 스택 트레이스와 원인 에러 체인을 함께 출력합니다.
//
// 스택은 체인의 끝(원인이 없거나 원인이 AppError가 아닌 경우)에서만 출력하여 중복을 피합니다.
func (e *AppError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "[%s] %s", e.errType, e.message)

			var target *AppError
			if (e.cause == nil || !errors.As(e.cause, &target)) && len(e.stack) > 0 {
				fmt.Fprint(s, "\nStack trace:")
				for _, frame := range e.stack {
					funcName := frame.Function
					if idx := strings.LastIndex(funcName, "/"); idx != -1 {
						funcName = funcName[idx+1:]
					}
					fmt.Fprintf(s, "\n\t%s:%d %s", frame.File, frame.Line, funcName)
				}
			}

			if e.cause != nil {
				fmt.Fprint(s, "\nCaused by:\n")
				if f, ok := e.cause.(fmt.Formatter); ok {
					f.Format(s, verb)
				} else {
					fmt.Fprintf(s, "\t%v", e.cause)
				}
			}
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// New 새로운 에러를 생성합니다.
func New(errType ErrorType, message string) error {
	return &AppError{
		errType: errType,
		message: message,
		stack:   captureStack(defaultCallerSkip),
	}
}

// Newf 포맷 문자열로 새로운 에러를 생성합니다.
func Newf(errType ErrorType, format string, args ...any) error {
	return &AppError{
		errType: errType,
		message: fmt.Sprintf(format, args...),
		stack:   captureStack(defaultCallerSkip),
	}
}

// Wrap 기존 에러를 감쌉니다. err이 nil이면 nil을 반환합니다.
func Wrap(err error, errType ErrorType, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		errType: errType,
		message: message,
		cause:   err,
		stack:   captureStack(defaultCallerSkip),
	}
}

// Wrapf 포맷 문자열로 기존 에러를 감쌉니다. err이 nil이면 nil을 반환합니다.
func Wrapf(err error, errType ErrorType, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &AppError{
		errType: errType,
		message: fmt.Sprintf(format, args...),
		cause:   err,
		stack:   captureStack(defaultCallerSkip),
	}
}

// Is 에러 체인에 주어진 ErrorType이 포함되어 있는지 확인합니다.
func Is(err error, errType ErrorType) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.errType == errType {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// As 표준 errors.As의 별칭입니다.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// RootCause 에러 체인의 가장 안쪽 에러를 반환합니다.
func RootCause(err error) error {
	if err == nil {
		return nil
	}

	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}

// UnderlyingType 에러 체인에서 가장 안쪽에 있는 AppError의 타입을 반환합니다.
// 체인에 AppError가 없으면 Unknown을 반환합니다.
func UnderlyingType(err error) ErrorType {
	last := Unknown

	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			last = appErr.errType
		}
		err = errors.Unwrap(err)
	}

	return last
}
