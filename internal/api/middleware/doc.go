// Package middleware 웹훅 서버에서 사용하는 Echo 미들웨어를 제공합니다.
package middleware

// component 미들웨어 로깅용 컴포넌트 이름
const component = "api.middleware"
