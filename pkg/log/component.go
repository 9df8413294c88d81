package log

import "github.com/sirupsen/logrus"

// WithComponent component 필드가 설정된 Entry를 반환합니다.
func WithComponent(component string) *Entry {
	return logrus.WithField("component", component)
}

// WithComponentAndFields component 필드와 추가 필드가 설정된 Entry를 반환합니다.
func WithComponentAndFields(component string, fields Fields) *Entry {
	merged := make(Fields, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["component"] = component

	return logrus.WithFields(merged)
}

// StandardLogger 전역 logrus 로거를 반환합니다.
func StandardLogger() *Logger {
	return logrus.StandardLogger()
}

// SetDebugMode 디버그 모드이면 모든 레벨을, 아니면 INFO 이상만 기록합니다.
func SetDebugMode(debug bool) {
	if debug {
		logrus.SetLevel(TraceLevel)
	} else {
		logrus.SetLevel(InfoLevel)
	}
}
