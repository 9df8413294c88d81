// Package pipeline 채팅 메시지 하나를 처리하는 전체 흐름을 조율합니다.
//
// 링크 해석, 상품 조회, 제휴 링크 생성, 메시지 조립, 전달을 고정된 순서로 직렬 실행하며,
// 어느 단계에서든 실패하면 처리 중 안내 메시지를 단계별 안내 문구로 교체하고 종료합니다.
// 재시도와 중복 요청 제거는 수행하지 않습니다.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/darkkaiser/aliexpress-link-bot/internal/aliexpress"
	"github.com/darkkaiser/aliexpress-link-bot/internal/formatter"
	"github.com/darkkaiser/aliexpress-link-bot/internal/resolver"
	applog "github.com/darkkaiser/aliexpress-link-bot/pkg/log"
	"github.com/google/uuid"
)

const component = "pipeline"

// LinkResolver 메시지 텍스트를 상품 ID로 해석합니다.
type LinkResolver interface {
	Resolve(ctx context.Context, text string) (resolver.Resolution, error)
}

// ProductGateway 상품 상세 정보와 제휴 링크를 조회합니다.
type ProductGateway interface {
	FetchDetails(ctx context.Context, productID string) (*aliexpress.ProductDetails, error)
	FetchAffiliateLink(ctx context.Context, rawURL, sourceTag string) (aliexpress.AffiliateLink, error)
}

// Conversation 처리 결과를 사용자에게 전달하는 대화 채널입니다.
type Conversation interface {
	// ShowPlaceholder 처리 중 안내 메시지를 표시합니다.
	ShowPlaceholder(ctx context.Context, text string) error

	// Deliver 처리 중 안내 메시지를 완성된 메시지로 교체(또는 대체)합니다.
	Deliver(ctx context.Context, msg formatter.Message) error

	// Fail 처리 중 안내 메시지를 실패 안내 문구로 교체합니다.
	Fail(ctx context.Context, notice string) error
}

// Options 파이프라인 실행 옵션입니다.
type Options struct {
	CoinSourceTag    string
	BigSaveSourceTag string
	PromoLink        string
	Format           formatter.Options
}

// Outcome 파이프라인 한 번의 실행 결과입니다.
type Outcome struct {
	RunID string

	// State 최종 상태입니다. StateDelivered 또는 StateFailed입니다.
	State State

	// Stage, Reason, Err 실패한 경우에만 채워집니다.
	Stage  Stage
	Reason Reason
	Err    error

	ProductID string
	Message   formatter.Message
}

// Orchestrator 파이프라인 실행기입니다. 설정은 생성 이후 읽기 전용이며 동시 실행에 안전합니다.
type Orchestrator struct {
	resolver LinkResolver
	gateway  ProductGateway
	opts     Options
	metrics  *Metrics
}

// New Orchestrator를 생성합니다. metrics가 nil이면 외부에 노출되지 않는 지표를 사용합니다.
func New(r LinkResolver, g ProductGateway, opts Options, metrics *Metrics) *Orchestrator {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Orchestrator{
		resolver: r,
		gateway:  g,
		opts:     opts,
		metrics:  metrics,
	}
}

// run 한 번의 실행 동안 유지되는 상태입니다.
type run struct {
	id    string
	state State
	log   *applog.Entry
}

// Handle text를 처리하고 결과를 conv로 전달합니다.
func (o *Orchestrator) Handle(ctx context.Context, text string, conv Conversation) Outcome {
	r := &run{
		id:    uuid.NewString(),
		state: StateReceived,
	}
	r.log = applog.WithComponentAndFields(component, applog.Fields{"run_id": r.id})

	outcome := o.execute(ctx, r, text, conv)
	outcome.RunID = r.id

	o.metrics.recordOutcome(outcome)

	if outcome.State == StateFailed {
		if err := conv.Fail(ctx, Notice(outcome.Reason)); err != nil {
			r.log.WithError(err).Warn("실패 안내 메시지 전송에 실패했습니다")
		}

		entry := r.log.WithError(outcome.Err).WithFields(applog.Fields{
			"stage":  string(outcome.Stage),
			"reason": string(outcome.Reason),
		})
		if outcome.Reason == ReasonNoLinkFound || outcome.Reason == ReasonProductIDNotFound {
			entry.Info("메시지 처리를 중단했습니다")
		} else {
			entry.Warn("메시지 처리에 실패했습니다")
		}
	}

	return outcome
}

func (o *Orchestrator) execute(ctx context.Context, r *run, text string, conv Conversation) Outcome {
	if err := conv.ShowPlaceholder(ctx, NoticePlaceholder); err != nil {
		r.log.WithError(err).Warn("처리 중 안내 메시지 전송에 실패했습니다")
	}

	// 1. 링크 추출 및 상품 ID 해석
	start := time.Now()
	res, err := o.resolver.Resolve(ctx, text)
	o.metrics.observeStage(StageResolveID, start)
	if err != nil {
		if errors.Is(err, resolver.ErrNoLinkFound) {
			return failed(StageExtractLink, ReasonNoLinkFound, err)
		}
		return failed(StageResolveID, ReasonProductIDNotFound, err)
	}
	r.advance(StateLinkExtracted)
	r.advance(StateIDResolved)

	r.log = r.log.WithField("product_id", res.ProductID)
	if res.RedirectErr != nil {
		r.log.WithError(res.RedirectErr).Warn("단축 링크 추적에 실패하여 원래 URL을 사용했습니다")
	}

	// 2. 상품 상세 조회
	start = time.Now()
	details, err := o.gateway.FetchDetails(ctx, res.ProductID)
	o.metrics.observeStage(StageFetchDetails, start)
	if err != nil {
		return failed(StageFetchDetails, ReasonDetailsFailed, err).withProduct(res.ProductID)
	}
	r.advance(StateDetailsFetched)

	// 3. 제휴 링크 생성 (코인 할인, 빅세일 순서)
	start = time.Now()
	links, err := o.generateLinks(ctx, details)
	o.metrics.observeStage(StageGenerateLinks, start)
	if err != nil {
		return failed(StageGenerateLinks, ReasonLinksFailed, err).withProduct(res.ProductID)
	}
	r.advance(StateLinksGenerated)

	// 4. 메시지 조립
	start = time.Now()
	msg := formatter.Format(details, links, o.opts.Format)
	o.metrics.observeStage(StageFormat, start)
	if len(msg.Omitted) > 0 {
		r.log.WithField("omitted", msg.Omitted).Debug("일부 항목을 계산할 수 없어 생략했습니다")
	}
	r.advance(StateFormatted)

	// 5. 전달
	start = time.Now()
	err = conv.Deliver(ctx, msg)
	o.metrics.observeStage(StageDeliver, start)
	if err != nil {
		out := failed(StageDeliver, ReasonDeliveryFailed, err).withProduct(res.ProductID)
		out.Message = msg
		return out
	}
	r.advance(StateDelivered)

	r.log.Info("메시지 처리를 완료했습니다")

	return Outcome{State: StateDelivered, ProductID: res.ProductID, Message: msg}
}

func (o *Orchestrator) generateLinks(ctx context.Context, d *aliexpress.ProductDetails) (formatter.Links, error) {
	rawURL := d.DetailURL
	if rawURL == "" {
		rawURL = aliexpress.CanonicalProductURL(d.ProductID)
	}

	coin, err := o.gateway.FetchAffiliateLink(ctx, rawURL, o.opts.CoinSourceTag)
	if err != nil {
		return formatter.Links{}, err
	}

	bigSave, err := o.gateway.FetchAffiliateLink(ctx, rawURL, o.opts.BigSaveSourceTag)
	if err != nil {
		return formatter.Links{}, err
	}

	return formatter.Links{Coin: coin, BigSave: bigSave, Promo: o.opts.PromoLink}, nil
}

func (r *run) advance(to State) {
	r.log.WithFields(applog.Fields{
		"from": r.state.String(),
		"to":   to.String(),
	}).Debug("상태 전이")
	r.state = to
}

func failed(stage Stage, reason Reason, err error) Outcome {
	return Outcome{State: StateFailed, Stage: stage, Reason: reason, Err: err}
}

func (o Outcome) withProduct(productID string) Outcome {
	o.ProductID = productID
	return o
}
