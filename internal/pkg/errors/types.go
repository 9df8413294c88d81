package errors

import "strconv"

// ErrorType 에러의 종류를 나타냅니다.
type ErrorType int

const (
	// Unknown 분류할 수 없는 에러
	Unknown ErrorType = iota

	// Internal 내부 로직 오류 (버그 등)
	Internal

	// System 네트워크, 파일 등 인프라 수준의 오류
	System

	// Unauthorized 인증 실패 (잘못된 앱 키, 봇 토큰 등)
	Unauthorized

	// Forbidden 접근 거부
	Forbidden

	// InvalidInput 입력값 검증 실패
	InvalidInput

	// NotFound 대상을 찾을 수 없음
	NotFound

	// ExecutionFailed 외부 API 호출 등 작업 실행 실패
	ExecutionFailed

	// ParsingFailed 응답 파싱 또는 형식 변환 실패
	ParsingFailed

	// Timeout 시간 초과
	Timeout

	// Unavailable 외부 서비스 일시적 사용 불가
	Unavailable
)

var errorTypeNames = [...]string{
	Unknown:         "Unknown",
	Internal:        "Internal",
	System:          "System",
	Unauthorized:    "Unauthorized",
	Forbidden:       "Forbidden",
	InvalidInput:    "InvalidInput",
	NotFound:        "NotFound",
	ExecutionFailed: "ExecutionFailed",
	ParsingFailed:   "ParsingFailed",
	Timeout:         "Timeout",
	Unavailable:     "Unavailable",
}

func (t ErrorType) String() string {
	if t < 0 || int(t) >= len(errorTypeNames) {
		return "ErrorType(" + strconv.Itoa(int(t)) + ")"
	}
	return errorTypeNames[t]
}
