package signer

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleParams() map[string]string {
	return map[string]string{
		"method":          "aliexpress.affiliate.productdetail.get",
		"app_key":         "12345678",
		"timestamp":       "1700000000000",
		"format":          "json",
		"v":               "2.0",
		"sign_method":     "hmac",
		"product_ids":     "1005006123456",
		"target_currency": "USD",
		"target_language": "EN",
		"ship_to_country": "DZ",
		"tracking_id":     "default",
	}
}

func TestSign_KnownVector(t *testing.T) {
	params := map[string]string{"b": "2", "a": "1"}
	secret := "s3cr3t"

	mac := hmac.New(md5.New, []byte(secret))
	mac.Write([]byte("s3cr3ta1b2s3cr3t"))
	expectedHMAC := strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))

	sum := md5.Sum([]byte("s3cr3ta1b2s3cr3t"))
	expectedMD5 := strings.ToUpper(hex.EncodeToString(sum[:]))

	assert.Equal(t, expectedHMAC, Sign(params, secret, MethodHMAC))
	assert.Equal(t, expectedMD5, Sign(params, secret, MethodMD5))
	assert.NotEqual(t, expectedHMAC, expectedMD5)
}

func TestSign_Format(t *testing.T) {
	got := Sign(sampleParams(), "secret", MethodHMAC)

	assert.Len(t, got, 32)
	assert.Equal(t, strings.ToUpper(got), got)
}

func TestSign_Deterministic(t *testing.T) {
	// map 순회 순서는 실행마다 달라지므로 여러 번 계산하여 결과가 같은지 확인합니다.
	first := Sign(sampleParams(), "secret", MethodHMAC)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Sign(sampleParams(), "secret", MethodHMAC))
	}
}

func TestSign_Sensitivity(t *testing.T) {
	base := Sign(sampleParams(), "secret", MethodHMAC)

	for key := range sampleParams() {
		t.Run(key, func(t *testing.T) {
			p := sampleParams()
			p[key] += "x"
			assert.NotEqual(t, base, Sign(p, "secret", MethodHMAC))
		})
	}

	t.Run("secret", func(t *testing.T) {
		assert.NotEqual(t, base, Sign(sampleParams(), "secret2", MethodHMAC))
	})
}

func TestSign_IgnoresExistingSign(t *testing.T) {
	p := sampleParams()
	expected := Sign(p, "secret", MethodHMAC)

	p[ParamSign] = "STALE"
	assert.Equal(t, expected, Sign(p, "secret", MethodHMAC))
}

func TestSign_ByteWiseOrdering(t *testing.T) {
	// 대문자는 소문자보다 앞에 정렬됩니다 ("Z" < "a").
	params := map[string]string{"a": "1", "Z": "2"}
	sum := md5.Sum([]byte("kZ2a1k"))

	assert.Equal(t, strings.ToUpper(hex.EncodeToString(sum[:])), Sign(params, "k", MethodMD5))
}

func TestSignedParams(t *testing.T) {
	src := sampleParams()
	signed := NewSignedParams(src, "secret", MethodHMAC)

	require.Equal(t, Sign(src, "secret", MethodHMAC), signed.Signature())
	assert.NotContains(t, src, ParamSign, "원본 맵은 변경되지 않아야 합니다")

	t.Run("With Re-Signs", func(t *testing.T) {
		next := signed.With("product_ids", "1005000000001")

		assert.Equal(t, "1005000000001", next.Get("product_ids"))
		assert.Equal(t, "1005006123456", signed.Get("product_ids"), "기존 값은 불변이어야 합니다")
		assert.NotEqual(t, signed.Signature(), next.Signature())

		expected := sampleParams()
		expected["product_ids"] = "1005000000001"
		assert.Equal(t, Sign(expected, "secret", MethodHMAC), next.Signature())
	})

	t.Run("Values Has Exactly One Sign", func(t *testing.T) {
		v := signed.Values()
		assert.Len(t, v[ParamSign], 1)
		assert.Equal(t, signed.Signature(), v.Get(ParamSign))
		assert.Equal(t, "USD", v.Get("target_currency"))
	})

	t.Run("Sign Key Cannot Be Forged", func(t *testing.T) {
		next := signed.With(ParamSign, "FORGED")
		assert.Equal(t, signed.Signature(), next.Signature())
	})
}

func TestMethod_Valid(t *testing.T) {
	assert.True(t, MethodHMAC.Valid())
	assert.True(t, MethodMD5.Valid())
	assert.False(t, Method("sha256").Valid())
}
