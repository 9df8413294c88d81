// Package testutil 테스트에서 공통으로 사용하는 도우미를 제공합니다.
package testutil

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"
)

// FreePort 테스트 서버가 사용할 수 있는 임의의 TCP 포트를 반환합니다.
func FreePort(t testing.TB) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("사용 가능한 포트를 찾을 수 없습니다: %v", err)
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}

// WaitForServer 서버가 port에서 연결을 받을 때까지 기다립니다.
func WaitForServer(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	address := fmt.Sprintf("127.0.0.1:%d", port)

	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", address, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}

	return fmt.Errorf("서버가 %v 안에 %d 포트에서 시작되지 않았습니다", timeout, port)
}

// WaitForServerDown 서버가 port에서 더 이상 연결을 받지 않을 때까지 기다립니다.
func WaitForServerDown(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	address := fmt.Sprintf("127.0.0.1:%d", port)

	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", address, 100*time.Millisecond)
		if err != nil {
			return nil
		}
		conn.Close()
		time.Sleep(10 * time.Millisecond)
	}

	return fmt.Errorf("서버가 %v 안에 %d 포트에서 종료되지 않았습니다", timeout, port)
}

// NoRedirectClient 리다이렉트를 따라가지 않는 HTTP 클라이언트를 반환합니다.
func NoRedirectClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
