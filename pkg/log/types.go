package log

import (
	"github.com/sirupsen/logrus"
)

// Level logrus.Level의 별칭입니다.
type Level = logrus.Level

const (
	PanicLevel Level = logrus.PanicLevel
	FatalLevel Level = logrus.FatalLevel
	ErrorLevel Level = logrus.ErrorLevel
	WarnLevel  Level = logrus.WarnLevel
	InfoLevel  Level = logrus.InfoLevel
	DebugLevel Level = logrus.DebugLevel
	TraceLevel Level = logrus.TraceLevel
)

// AllLevels logrus.AllLevels의 별칭입니다.
var AllLevels = logrus.AllLevels

type (
	Fields        = logrus.Fields
	Entry         = logrus.Entry
	Hook          = logrus.Hook
	Logger        = logrus.Logger
	Formatter     = logrus.Formatter
	JSONFormatter = logrus.JSONFormatter
	TextFormatter = logrus.TextFormatter
)

// ParseLevel 문자열을 로그 레벨로 변환합니다.
func ParseLevel(s string) (Level, error) {
	return logrus.ParseLevel(s)
}
