package pipeline

// 사용자에게 보내는 안내 문구입니다. 내부 에러 내용은 포함하지 않습니다.
const (
	NoticeWelcome     = "👋 أهلا بك! ابعث لي رابط منتج من AliExpress باش نرجعلك التفاصيل والتخفيضات."
	NoticePlaceholder = "⏳ راني نخدم على طلبك، استنى شوية..."

	NoticeNoLinkFound       = "⚠️ ما لقيتش رابط AliExpress في رسالتك."
	NoticeProductIDNotFound = "⚠️ ما قدرتش نستخرج ID تاع المنتج من الرابط."
	NoticeDetailsFailed     = "❌ ما قدرتش نجيب تفاصيل المنتج، عاود جرب من بعد."
	NoticeLinksFailed       = "❌ ما قدرتش نولد روابط التخفيض، عاود جرب من بعد."
	NoticeDeliveryFailed    = "❌ صرا مشكل في إرسال الرد، عاود جرب من بعد."
)

var notices = map[Reason]string{
	ReasonNoLinkFound:       NoticeNoLinkFound,
	ReasonProductIDNotFound: NoticeProductIDNotFound,
	ReasonDetailsFailed:     NoticeDetailsFailed,
	ReasonLinksFailed:       NoticeLinksFailed,
	ReasonDeliveryFailed:    NoticeDeliveryFailed,
}

// Notice 실패 원인에 해당하는 안내 문구를 반환합니다.
func Notice(r Reason) string {
	if n, ok := notices[r]; ok {
		return n
	}
	return NoticeDetailsFailed
}
