package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/darkkaiser/aliexpress-link-bot/internal/aliexpress"
	"github.com/darkkaiser/aliexpress-link-bot/internal/config"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pipeline"
	apperrors "github.com/darkkaiser/aliexpress-link-bot/internal/pkg/errors"
	"github.com/darkkaiser/aliexpress-link-bot/internal/pkg/version"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailResponse = `{
  "aliexpress_affiliate_productdetail_get_response": {
    "resp_result": {
      "resp_code": 200,
      "result": {
        "products": {
          "product": [{
            "product_id": 1005006123456,
            "product_title": "Wireless Earbuds",
            "target_sale_price": "100.00",
            "target_sale_price_currency": "USD",
            "product_main_image_url": "https://ae01.alicdn.com/kf/abc.jpg",
            "shop_name": "Best Store",
            "evaluate_rate": "96.5%",
            "product_detail_url": "https://www.aliexpress.com/item/1005006123456.html"
          }]
        }
      }
    }
  }
}`

const linkResponse = `{
  "aliexpress_affiliate_link_generate_response": {
    "resp_result": {
      "resp_code": 200,
      "result": {
        "promotion_links": {
          "promotion_link": [{"promotion_link": "https://s.click.aliexpress.com/e/_tracked"}]
        }
      }
    }
  }
}`

// newTestApp 가짜 제휴 API 서버를 사용하는 app을 생성합니다.
func newTestApp(t *testing.T) *app {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("method") {
		case aliexpress.MethodProductDetail:
			_, _ = w.Write([]byte(detailResponse))
		case aliexpress.MethodLinkGenerate:
			_, _ = w.Write([]byte(linkResponse))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)

	cfg, err := config.LoadWithFile("")
	require.NoError(t, err)
	cfg.AliExpress.Endpoint = srv.URL + "/sync"
	cfg.AliExpress.AppKey = "12345678"
	cfg.AliExpress.AppSecret = "secret"

	a, err := newApp(cfg, version.Info{Version: "v0.0.0-test"})
	require.NoError(t, err)
	return a
}

// =============================================================================
// Commands
// =============================================================================

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "poll", "lookup", "version"} {
		assert.True(t, names[want], "하위 명령이 등록되어야 합니다: %s", want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))

	lookup, _, err := root.Find([]string{"lookup"})
	require.NoError(t, err)
	assert.NotNil(t, lookup.Flags().Lookup("raw"))
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, version.Get().String()+"\n", out.String())
}

func TestLookupCmd_RequiresArgument(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"lookup"})

	assert.Error(t, root.Execute())
}

// =============================================================================
// Lookup
// =============================================================================

func TestLookup_PrintsFormattedMessage(t *testing.T) {
	a := newTestApp(t)

	var out bytes.Buffer
	outcome := a.orchestrator.Handle(context.Background(), "1005006123456", newConsoleConversation(&out))

	require.Equal(t, pipeline.StateDelivered, outcome.State, "err: %v", outcome.Err)

	text := out.String()
	assert.Contains(t, text, "[image] https://ae01.alicdn.com/kf/abc.jpg")
	assert.Contains(t, text, "Wireless Earbuds")
	assert.Contains(t, text, "100\\.00 USD")
	assert.Contains(t, text, "e/\\_tracked")
}

func TestLookup_FailurePrintsNotice(t *testing.T) {
	a := newTestApp(t)

	var out bytes.Buffer
	outcome := a.orchestrator.Handle(context.Background(), "no link here", newConsoleConversation(&out))

	assert.Equal(t, pipeline.StateFailed, outcome.State)
	assert.Contains(t, out.String(), "! "+pipeline.Notice(pipeline.ReasonNoLinkFound))
}

func TestLookupRaw_PrintsIndentedBody(t *testing.T) {
	a := newTestApp(t)

	var out bytes.Buffer
	require.NoError(t, lookupRaw(context.Background(), a, "1005006123456", &out))

	assert.True(t, strings.HasPrefix(out.String(), "{\n  \"aliexpress_affiliate_productdetail_get_response\""))
	assert.Contains(t, out.String(), `"product_title": "Wireless Earbuds"`)
}

func TestNewApp_RegistersMetrics(t *testing.T) {
	a := newTestApp(t)

	families, err := a.registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["aliexpress_link_bot_build_info"])
	assert.True(t, names["go_goroutines"])
}

// =============================================================================
// Serve
// =============================================================================

type stubService struct {
	done chan struct{}
	err  error
}

func (s *stubService) Done() <-chan struct{} { return s.done }
func (s *stubService) Err() error            { return s.err }

func TestAwaitShutdown(t *testing.T) {
	t.Run("종료 신호", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := &stubService{done: make(chan struct{})}
		assert.NoError(t, awaitShutdown(ctx, svc, &sync.WaitGroup{}))
	})

	t.Run("서버가 먼저 중지됨", func(t *testing.T) {
		svc := &stubService{done: make(chan struct{}), err: apperrors.New(apperrors.System, "listen tcp :8080: bind: address already in use")}
		close(svc.done)

		errC := make(chan error, 1)
		go func() { errC <- awaitShutdown(context.Background(), svc, &sync.WaitGroup{}) }()

		select {
		case err := <-errC:
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.System))
			assert.Contains(t, err.Error(), "address already in use")
		case <-time.After(5 * time.Second):
			t.Fatal("서버가 중지되면 종료 신호 없이도 반환되어야 합니다")
		}
	})
}

// =============================================================================
// Log Options
// =============================================================================

func TestLogOptions(t *testing.T) {
	tests := []struct {
		name        string
		debug       bool
		console     bool
		level       string
		wantLevel   applog.Level
		wantConsole bool
	}{
		{"운영 기본값", false, true, "", applog.InfoLevel, false},
		{"개발 모드", true, true, "", applog.TraceLevel, true},
		{"개발 모드 lookup", true, false, "", applog.TraceLevel, false},
		{"레벨 지정", false, true, "warn", applog.WarnLevel, false},
		{"잘못된 레벨은 무시", false, true, "loud", applog.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.AppConfig{Debug: tt.debug}
			cfg.Log.Level = tt.level
			cfg.Log.Dir = "var/log"
			cfg.Log.MaxAge = 7

			opts := logOptions(cfg, tt.console)

			assert.Equal(t, config.AppName, opts.Name)
			assert.Equal(t, tt.wantLevel, opts.Level)
			assert.Equal(t, tt.wantConsole, opts.EnableConsoleLog)
			assert.Equal(t, "var/log", opts.Dir)
			assert.Equal(t, 7, opts.MaxAge)
		})
	}
}
