package config

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

var (
	// 텔레그램 봇 토큰 검증을 위한 정규식 (예: 123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11)
	telegramBotTokenRegex = regexp.MustCompile(`^\d{3,20}:[a-zA-Z0-9_-]{30,50}$`)
)

// newValidator 새로운 Validator 인스턴스를 생성하고 커스텀 유효성 검사 함수를 등록합니다.
func newValidator() *validator.Validate {
	v := validator.New()

	// 검증 에러 메시지에 Go 구조체 필드명 대신 JSON 이름(예: target_currency)을 보여주도록 설정합니다.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	customs := map[string]validator.Func{
		"telegram_bot_token": validateTelegramBotToken,
		"currency_code":      validateCurrencyCode,
		"language_tag":       validateLanguageTag,
	}
	for tag, fn := range customs {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("초기화 치명적 오류: '%s' 커스텀 유효성 검사 함수 등록에 실패했습니다: %v", tag, err))
		}
	}

	return v
}

// validateTelegramBotToken 입력된 문자열이 유효한 텔레그램 봇 토큰 형식인지 검증합니다.
//
// 텔레그램 봇 토큰은 식별자(숫자)와 비밀키(문자열)가 콜론(:)으로 구분된 형태여야 합니다.
// 예: "123456789:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"
func validateTelegramBotToken(fl validator.FieldLevel) bool {
	return telegramBotTokenRegex.MatchString(fl.Field().String())
}

// validateCurrencyCode ISO 4217 통화 코드(예: USD, EUR, DZD)인지 검증합니다.
func validateCurrencyCode(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 3 {
		return false
	}
	_, err := currency.ParseISO(s)
	return err == nil
}

// validateLanguageTag BCP 47 언어 태그(예: EN, FR, AR)로 해석 가능한지 검증합니다.
func validateLanguageTag(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	_, err := language.Parse(s)
	return err == nil
}

// checkStruct 구조체 인스턴스의 유효성을 태그 규칙에 따라 검증하고, 발생한 오류를 사용자 친화적인 도메인 에러로 변환합니다.
func checkStruct(v *validator.Validate, s interface{}, contextName string) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("%s 유효성 검증에 실패했습니다", contextName))
	}

	// 첫 번째 에러만 상세히 보고
	firstErr := validationErrors[0]

	// 필드별(Field) 커스텀 에러 처리 (dive 에러는 "Field[0]" 형태이므로 인덱스를 제거합니다)
	field := firstErr.StructField()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	switch field {
	case "ListenPort":
		return apperrors.New(apperrors.InvalidInput, "웹 서버 포트(listen_port)는 1에서 65535 사이의 값이어야 합니다")
	case "TLSCertFile":
		switch firstErr.Tag() {
		case "required_if":
			return apperrors.New(apperrors.InvalidInput, "TLS 서버 활성화 시 TLS 인증서 파일 경로(tls_cert_file)는 필수입니다")
		case "file":
			return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("지정된 TLS 인증서 파일(tls_cert_file)을 찾을 수 없습니다: '%v'", firstErr.Value()))
		}
	case "TLSKeyFile":
		switch firstErr.Tag() {
		case "required_if":
			return apperrors.New(apperrors.InvalidInput, "TLS 서버 활성화 시 TLS 키 파일 경로(tls_key_file)는 필수입니다")
		case "file":
			return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("지정된 TLS 키 파일(tls_key_file)을 찾을 수 없습니다: '%v'", firstErr.Value()))
		}
	case "SignMethod":
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("서명 방식(sign_method)은 hmac 또는 md5 중 하나여야 합니다: '%v'", firstErr.Value()))
	case "ShipToCountry":
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("배송 국가(ship_to_country)는 ISO 3166-1 alpha-2 국가 코드여야 합니다: '%v' (예: DZ, US)", firstErr.Value()))
	case "ShortenerDomains":
		if firstErr.Tag() == "min" {
			return apperrors.New(apperrors.InvalidInput, "단축 링크 도메인(shortener_domains) 목록이 비어있습니다")
		}
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("단축 링크 도메인(shortener_domains) 형식이 올바르지 않습니다: '%v'", firstErr.Value()))
	}

	// 태그별(Tag) 커스텀 에러 처리 (범용)
	switch firstErr.Tag() {
	case "telegram_bot_token":
		return apperrors.New(apperrors.InvalidInput, "텔레그램 BotToken 형식이 올바르지 않습니다 (올바른 형식: 123456:ABC-DEF...)")
	case "currency_code":
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("통화 코드(%s)가 ISO 4217 형식이 아닙니다: '%v' (예: USD, EUR)", firstErr.Field(), firstErr.Value()))
	case "language_tag":
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("언어 코드(%s)를 해석할 수 없습니다: '%v' (예: EN, FR, AR)", firstErr.Field(), firstErr.Value()))
	case "url":
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s의 %s 값이 올바른 URL 형식이 아닙니다: '%v'", contextName, firstErr.Field(), firstErr.Value()))
	case "required":
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s의 필수 항목(%s)이 설정되지 않았습니다", contextName, firstErr.Field()))
	}

	return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("%s의 설정이 올바르지 않습니다: %s (조건: %s)", contextName, firstErr.Field(), firstErr.Tag()))
}
