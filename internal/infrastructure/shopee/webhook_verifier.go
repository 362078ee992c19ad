package shopee

import (
	"encoding/json"

	"archie-core-shopee-layer/internal/domain"
)

// WebhookVerifier validates inbound Shopee push notifications before
// any business dispatch. Rejections carry a WebhookValidationError;
// the computed signature is never exposed.
type WebhookVerifier struct {
	signature *Signature
}

// NewWebhookVerifier creates a webhook verifier for the partner key.
func NewWebhookVerifier(partnerKey string) *WebhookVerifier {
	return &WebhookVerifier{signature: NewSignature(partnerKey)}
}

// pushPayload is the wire form of a Shopee push.
type pushPayload struct {
	Code      *int            `json:"code"`
	ShopID    int64           `json:"shop_id"`
	MsgID     string          `json:"msg_id"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Verify checks the push signature and parses the event. rawURL is the
// full request URL as the marketplace signed it, rawBody the exact
// body bytes. Fails closed on any malformed input.
func (v *WebhookVerifier) Verify(rawURL string, rawBody []byte, receivedSignature string) (*domain.WebhookEvent, error) {
	if receivedSignature == "" {
		return nil, &WebhookValidationError{Reason: "missing signature header"}
	}
	if len(rawBody) == 0 {
		return nil, &WebhookValidationError{Reason: "empty body"}
	}
	if !v.signature.VerifyWebhook(rawURL, rawBody, receivedSignature) {
		return nil, &WebhookValidationError{Reason: "signature mismatch", Err: ErrSignatureMismatch}
	}

	var payload pushPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, &WebhookValidationError{Reason: "non-JSON body"}
	}
	if payload.Code == nil {
		return nil, &WebhookValidationError{Reason: "missing event code"}
	}

	return &domain.WebhookEvent{
		Code:      *payload.Code,
		ShopID:    payload.ShopID,
		MsgID:     payload.MsgID,
		Timestamp: payload.Timestamp,
		Data:      payload.Data,
		Verified:  true,
	}, nil
}
