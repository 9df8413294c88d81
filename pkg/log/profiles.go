package log

const callerPathPrefix = "github.com/darkkaiser/aliexpress-link-bot"

// NewProductionOptions 운영 환경용 로그 설정을 반환합니다.
func NewProductionOptions(appName string) Options {
	return Options{
		Name:  appName,
		Level: InfoLevel,

		MaxAge:     30,
		MaxSizeMB:  100,
		MaxBackups: 20,

		EnableCriticalLog: true,
		EnableVerboseLog:  true,
		EnableConsoleLog:  false,

		ReportCaller:     true,
		CallerPathPrefix: callerPathPrefix,
	}
}

// NewDevelopmentOptions 개발 환경용 로그 설정을 반환합니다.
func NewDevelopmentOptions(appName string) Options {
	return Options{
		Name:  appName,
		Level: TraceLevel,

		MaxAge:     1,
		MaxSizeMB:  50,
		MaxBackups: 5,

		EnableConsoleLog: true,

		ReportCaller:     true,
		CallerPathPrefix: callerPathPrefix,
	}
}
