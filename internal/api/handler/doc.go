// Package handler 웹훅 서버의 HTTP 핸들러를 제공합니다.
package handler

const component = "api.handler"
