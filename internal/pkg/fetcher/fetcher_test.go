package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Helpers
// =============================================================================

type fetcherFunc func(req *http.Request) (*http.Response, error)

func (f fetcherFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func newResponse(status int, body string) (*http.Response, *trackingBody) {
	tb := &trackingBody{Reader: strings.NewReader(body)}
	req, _ := http.NewRequest(http.MethodGet, "https://api-sg.aliexpress.com/sync?app_key=123&sign=ABC", nil)
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Body:          tb,
		ContentLength: int64(len(body)),
		Header:        http.Header{},
		Request:       req,
	}, tb
}

// =============================================================================
// HTTPFetcher
// =============================================================================

func TestHTTPFetcher_FollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/item/1005006123456.html", http.StatusFound)
	}))
	defer hop.Close()

	f := NewHTTPFetcher(5*time.Second, 5)
	resp, err := Get(context.Background(), f, hop.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "/item/1005006123456.html", resp.Request.URL.Path)
}

func TestHTTPFetcher_RedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	_, err := Get(context.Background(), NewHTTPFetcher(5*time.Second, 2), srv.URL+"/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "리다이렉트 횟수 제한")
}

func TestHTTPFetcher_NoFollow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	resp, err := Get(context.Background(), NewHTTPFetcher(5*time.Second, 0), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
}

// =============================================================================
// Decorators
// =============================================================================

func TestUserAgentFetcher(t *testing.T) {
	t.Run("Injects When Missing", func(t *testing.T) {
		var got string
		f := NewUserAgentFetcher(fetcherFunc(func(req *http.Request) (*http.Response, error) {
			got = req.Header.Get("User-Agent")
			return nil, nil
		}), []string{"test-agent"})

		req, _ := http.NewRequest(http.MethodGet, "https://a.aliexpress.com/_x", nil)
		_, _ = f.Do(req)

		assert.Equal(t, "test-agent", got)
		assert.Empty(t, req.Header.Get("User-Agent"), "원본 요청은 변경되지 않아야 합니다")
	})

	t.Run("Keeps Existing", func(t *testing.T) {
		var got string
		f := NewUserAgentFetcher(fetcherFunc(func(req *http.Request) (*http.Response, error) {
			got = req.Header.Get("User-Agent")
			return nil, nil
		}), nil)

		req, _ := http.NewRequest(http.MethodGet, "https://a.aliexpress.com/_x", nil)
		req.Header.Set("User-Agent", "custom")
		_, _ = f.Do(req)

		assert.Equal(t, "custom", got)
	})

	t.Run("Default List", func(t *testing.T) {
		f := NewUserAgentFetcher(nil, nil)
		assert.Equal(t, defaultUserAgents, f.userAgents)
	})
}

func TestStatusCodeFetcher(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		allowed  []int
		wantErr  bool
		wantType apperrors.ErrorType
	}{
		{"OK", http.StatusOK, nil, false, apperrors.Unknown},
		{"Created Is 2xx", http.StatusCreated, nil, false, apperrors.Unknown},
		{"Not Found", http.StatusNotFound, nil, true, apperrors.ExecutionFailed},
		{"Server Error", http.StatusBadGateway, nil, true, apperrors.Unavailable},
		{"Too Many Requests", http.StatusTooManyRequests, nil, true, apperrors.Unavailable},
		{"Explicit Allow", http.StatusNotFound, []int{http.StatusNotFound}, false, apperrors.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := newResponse(tt.status, `{"error":"x"}`)
			f := NewStatusCodeFetcher(fetcherFunc(func(*http.Request) (*http.Response, error) {
				return resp, nil
			}), tt.allowed...)

			req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
			got, err := f.Do(req)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Same(t, resp, got)
				return
			}

			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, body.closed, "실패한 응답의 Body는 닫혀야 합니다")

			var statusErr *HTTPStatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, `{"error":"x"}`, statusErr.BodySnippet)
			assert.NotContains(t, statusErr.URL, "app_key=123")
			assert.True(t, apperrors.Is(err, tt.wantType))
		})
	}
}

func TestMaxBytesFetcher(t *testing.T) {
	t.Run("Content-Length Exceeded", func(t *testing.T) {
		resp, body := newResponse(http.StatusOK, strings.Repeat("a", 100))
		f := NewMaxBytesFetcher(fetcherFunc(func(*http.Request) (*http.Response, error) { return resp, nil }), 10)

		req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
		_, err := f.Do(req)

		require.ErrorIs(t, err, ErrResponseBodyTooLarge)
		assert.True(t, body.closed)
	})

	t.Run("Read Exceeded Without Content-Length", func(t *testing.T) {
		resp, _ := newResponse(http.StatusOK, strings.Repeat("a", 100))
		resp.ContentLength = -1
		f := NewMaxBytesFetcher(fetcherFunc(func(*http.Request) (*http.Response, error) { return resp, nil }), 10)

		req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
		got, err := f.Do(req)
		require.NoError(t, err)

		_, err = io.ReadAll(got.Body)
		assert.ErrorIs(t, err, ErrResponseBodyTooLarge)
	})

	t.Run("NoLimit", func(t *testing.T) {
		inner := fetcherFunc(func(*http.Request) (*http.Response, error) { return nil, nil })
		f := NewMaxBytesFetcher(inner, NoLimit)
		_, isMax := f.(*MaxBytesFetcher)
		assert.False(t, isMax)
	})
}

func TestNew_ChainWithServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Config{Name: "test", Timeout: 5 * time.Second, MaxRedirects: 3, EnableUserAgent: true, CheckStatus: true})

	resp, err := Get(context.Background(), f, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
}

// =============================================================================
// Redaction
// =============================================================================

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		contains    []string
		notContains []string
	}{
		{
			name:        "Signed Gateway Query",
			raw:         "https://api-sg.aliexpress.com/sync?app_key=123456&sign=ABCDEF&method=x",
			contains:    []string{"method=x", "app_key=xxxxx", "sign=xxxxx"},
			notContains: []string{"123456", "ABCDEF"},
		},
		{
			name:        "Telegram Bot Token Path",
			raw:         "https://api.telegram.org/bot123456:AAbbCC_dd-ee/sendMessage",
			contains:    []string{"/botxxxxx/sendMessage"},
			notContains: []string{"AAbbCC"},
		},
		{
			name:        "User Info",
			raw:         "https://user:pw@example.com/",
			contains:    []string{"user:xxxxx@"},
			notContains: []string{"pw@"},
		},
		{
			name:     "Harmless Key",
			raw:      "https://example.com/?monkey=1",
			contains: []string{"monkey=1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			require.NoError(t, err)

			got := RedactURL(u)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, got, s)
			}
		})
	}

	assert.Equal(t, "", RedactURL(nil))
	assert.Equal(t, "xxxxx", RedactRawURL("http://[::1"))
}

// =============================================================================
// HTML
// =============================================================================

func TestParseHTML_Charset(t *testing.T) {
	// "café" in ISO-8859-1
	body := "<html><head><title>caf\xe9</title></head></html>"
	resp := &http.Response{
		Body:   io.NopCloser(strings.NewReader(body)),
		Header: http.Header{"Content-Type": []string{"text/html; charset=iso-8859-1"}},
	}

	doc, err := ParseHTML(resp)
	require.NoError(t, err)
	assert.Equal(t, "café", doc.Find("title").Text())
}
