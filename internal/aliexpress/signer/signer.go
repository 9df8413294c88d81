// Package signer AliExpress 오픈 플랫폼(TOP) 요청 서명을 계산합니다.
//
// 서명 입력은 파라미터를 키 기준 오름차순(바이트 단위)으로 정렬한 뒤 key+value를 이어 붙인 문자열 Q에 대해
// secret+Q+secret 형태로 구성되며, HMAC-MD5(키: secret) 또는 MD5 다이제스트를 대문자 16진수로 표현합니다.
package signer

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"hash"
	"maps"
	"net/url"
	"slices"
	"strings"
)

// ParamSign 서명 값이 저장되는 파라미터 이름입니다. 서명 입력에서는 제외됩니다.
const ParamSign = "sign"

// Method 서명 알고리즘입니다. sign_method 파라미터 값과 동일합니다.
type Method string

const (
	MethodHMAC Method = "hmac"
	MethodMD5  Method = "md5"
)

// Valid 지원하는 알고리즘인지 확인합니다.
func (m Method) Valid() bool {
	return m == MethodHMAC || m == MethodMD5
}

// Sign 파라미터와 secret으로 서명을 계산합니다. 삽입 순서와 무관하게 항상 같은 값을 반환합니다.
// 지원하지 않는 Method는 HMAC으로 처리합니다.
func Sign(params map[string]string, secret string, method Method) string {
	keys := slices.Sorted(maps.Keys(params))

	var b strings.Builder
	b.WriteString(secret)
	for _, k := range keys {
		if k == ParamSign {
			continue
		}
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	var h hash.Hash
	if method == MethodMD5 {
		h = md5.New()
	} else {
		h = hmac.New(md5.New, []byte(secret))
	}
	h.Write([]byte(b.String()))

	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

// SignedParams 서명이 완료된 불변 파라미터 집합입니다.
//
// 서명 이후 파라미터를 변경하려면 With를 사용합니다. With는 항상 새 서명이 계산된 사본을 반환하므로
// 서명과 파라미터가 어긋난 상태가 만들어지지 않습니다.
type SignedParams struct {
	params map[string]string
	secret string
	method Method
}

// NewSignedParams params를 복사하고 서명을 추가합니다. params에 sign 키가 있으면 무시됩니다.
func NewSignedParams(params map[string]string, secret string, method Method) SignedParams {
	cloned := make(map[string]string, len(params)+1)
	for k, v := range params {
		if k != ParamSign {
			cloned[k] = v
		}
	}
	cloned[ParamSign] = Sign(cloned, secret, method)

	return SignedParams{params: cloned, secret: secret, method: method}
}

// With key=value를 반영하고 다시 서명한 사본을 반환합니다.
func (p SignedParams) With(key, value string) SignedParams {
	next := maps.Clone(p.params)
	next[key] = value
	return NewSignedParams(next, p.secret, p.method)
}

// Get 파라미터 값을 반환합니다.
func (p SignedParams) Get(key string) string {
	return p.params[key]
}

// Signature 계산된 서명을 반환합니다.
func (p SignedParams) Signature() string {
	return p.params[ParamSign]
}

// Values HTTP 쿼리 문자열로 사용할 url.Values를 반환합니다.
func (p SignedParams) Values() url.Values {
	v := make(url.Values, len(p.params))
	for k, val := range p.params {
		v.Set(k, val)
	}
	return v
}

// Encode 키 순서로 정렬된 쿼리 문자열을 반환합니다.
func (p SignedParams) Encode() string {
	return p.Values().Encode()
}
