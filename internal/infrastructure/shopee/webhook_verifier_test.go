package shopee

import (
	"testing"

	"archie-core-shopee-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	webhookTestURL  = "https://example.com/webhooks/shopee"
	webhookTestBody = `{"code":3,"shop_id":789001,"timestamp":1700000000,"msg_id":"msg-1","data":{"ordersn":"2311080ABC"}}`
	// HMAC-SHA256 of webhookTestURL + "|" + webhookTestBody under testPartnerKey.
	webhookTestSignature = "4fabefe13633a7ed799edd8d9b935c31a1ca66b29645f72b6fe7e1b363ddf546"
)

func TestWebhookVerifier_AcceptsValidPush(t *testing.T) {
	v := NewWebhookVerifier(testPartnerKey)

	event, err := v.Verify(webhookTestURL, []byte(webhookTestBody), webhookTestSignature)
	require.NoError(t, err)

	assert.Equal(t, domain.PushCodeOrderStatus, event.Code)
	assert.Equal(t, int64(789001), event.ShopID)
	assert.Equal(t, "msg-1", event.MsgID)
	assert.Equal(t, int64(1700000000), event.Timestamp)
	assert.JSONEq(t, `{"ordersn":"2311080ABC"}`, string(event.Data))
	assert.True(t, event.Verified)
}

func TestWebhookVerifier_RejectsTamperedBody(t *testing.T) {
	v := NewWebhookVerifier(testPartnerKey)

	tampered := `{"code":3,"shop_id":789002,"timestamp":1700000000,"msg_id":"msg-1","data":{"ordersn":"2311080ABC"}}`
	_, err := v.Verify(webhookTestURL, []byte(tampered), webhookTestSignature)

	var verr *WebhookValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "signature mismatch", verr.Reason)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestWebhookVerifier_RejectsWrongURL(t *testing.T) {
	v := NewWebhookVerifier(testPartnerKey)

	_, err := v.Verify("https://evil.example.com/webhooks/shopee", []byte(webhookTestBody), webhookTestSignature)

	var verr *WebhookValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "signature mismatch", verr.Reason)
}

func TestWebhookVerifier_RejectsMalformedInput(t *testing.T) {
	v := NewWebhookVerifier(testPartnerKey)
	sig := NewSignature(testPartnerKey)

	cases := []struct {
		name      string
		body      string
		signature func(body string) string
		reason    string
	}{
		{
			name:      "missing signature header",
			body:      webhookTestBody,
			signature: func(string) string { return "" },
			reason:    "missing signature header",
		},
		{
			name:      "empty body",
			body:      "",
			signature: func(string) string { return webhookTestSignature },
			reason:    "empty body",
		},
		{
			name: "non-JSON body",
			body: "not json at all",
			signature: func(body string) string {
				return sig.sign(webhookTestURL + "|" + body)
			},
			reason: "non-JSON body",
		},
		{
			name: "missing event code",
			body: `{"shop_id":789001,"msg_id":"msg-2"}`,
			signature: func(body string) string {
				return sig.sign(webhookTestURL + "|" + body)
			},
			reason: "missing event code",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(webhookTestURL, []byte(tc.body), tc.signature(tc.body))

			var verr *WebhookValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.reason, verr.Reason)
		})
	}
}

func TestWebhookVerifier_AcceptsTestPush(t *testing.T) {
	v := NewWebhookVerifier(testPartnerKey)
	sig := NewSignature(testPartnerKey)

	body := `{"code":0,"shop_id":0,"timestamp":1700000100,"msg_id":"ping-1","data":{}}`
	event, err := v.Verify(webhookTestURL, []byte(body), sig.sign(webhookTestURL+"|"+body))
	require.NoError(t, err)
	assert.Equal(t, domain.PushCodeTest, event.Code)
}
