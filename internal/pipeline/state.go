package pipeline

import "github.com/iancoleman/strcase"

// State 파이프라인 실행의 진행 상태입니다.
//
//	Received → LinkExtracted → IDResolved → DetailsFetched → LinksGenerated → Formatted → Delivered
//
// 종료 상태가 아닌 모든 상태에서 Failed로 전이할 수 있습니다.
type State int

const (
	StateReceived State = iota
	StateLinkExtracted
	StateIDResolved
	StateDetailsFetched
	StateLinksGenerated
	StateFormatted
	StateDelivered
	StateFailed
)

var stateNames = [...]string{
	StateReceived:       "Received",
	StateLinkExtracted:  "LinkExtracted",
	StateIDResolved:     "IdResolved",
	StateDetailsFetched: "DetailsFetched",
	StateLinksGenerated: "LinksGenerated",
	StateFormatted:      "Formatted",
	StateDelivered:      "Delivered",
	StateFailed:         "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Label 지표 레이블에 사용하는 snake_case 이름입니다. (예: DetailsFetched -> details_fetched)
func (s State) Label() string {
	return strcase.ToSnake(s.String())
}

// Stage 상태 전이를 일으키는 처리 단계입니다.
type Stage string

const (
	StageExtractLink   Stage = "ExtractLink"
	StageResolveID     Stage = "ResolveID"
	StageFetchDetails  Stage = "FetchDetails"
	StageGenerateLinks Stage = "GenerateLinks"
	StageFormat        Stage = "Format"
	StageDeliver       Stage = "Deliver"
)

// Label 지표 레이블에 사용하는 snake_case 이름입니다. (예: FetchDetails -> fetch_details)
func (s Stage) Label() string {
	return strcase.ToSnake(string(s))
}

// Reason 실패 원인입니다. 사용자 안내 문구를 고르는 기준이 됩니다.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNoLinkFound       Reason = "NoLinkFound"
	ReasonProductIDNotFound Reason = "ProductIdNotFound"
	ReasonDetailsFailed     Reason = "GatewayDetailsFailed"
	ReasonLinksFailed       Reason = "GatewayLinksFailed"
	ReasonDeliveryFailed    Reason = "DeliveryFailed"
)

// Label 지표 레이블에 사용하는 snake_case 이름입니다.
func (r Reason) Label() string {
	return strcase.ToSnake(string(r))
}
