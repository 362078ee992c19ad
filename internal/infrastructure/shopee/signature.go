package shopee

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signature provides HMAC-SHA256 signature generation and verification
// for the Shopee Open Platform. All methods are pure and deterministic.
type Signature struct {
	partnerKey string
}

// NewSignature creates a new Signature utility.
func NewSignature(partnerKey string) *Signature {
	return &Signature{partnerKey: partnerKey}
}

// SignPublic generates the signature for public (unauthenticated)
// endpoints. Base string: partner_id + api_path + timestamp.
func (s *Signature) SignPublic(partnerID int64, path string, timestamp int64) string {
	base := fmt.Sprintf("%d%s%d", partnerID, path, timestamp)
	return s.sign(base)
}

// SignShop generates the signature for shop-scoped endpoints.
// Base string: partner_id + api_path + timestamp + access_token + shop_id.
// Field order is fixed; any reordering is rejected by the remote side.
func (s *Signature) SignShop(partnerID int64, path string, timestamp int64, accessToken string, shopID int64) string {
	base := fmt.Sprintf("%d%s%d%s%d", partnerID, path, timestamp, accessToken, shopID)
	return s.sign(base)
}

// VerifyWebhook verifies the signature of an incoming push. The base
// string is the full request URL and the raw JSON body joined by "|".
// Fails closed: empty body, empty signature or malformed hex all
// report a mismatch, never an error.
func (s *Signature) VerifyWebhook(rawURL string, body []byte, receivedHex string) bool {
	if s.partnerKey == "" || len(body) == 0 || receivedHex == "" {
		return false
	}
	received, err := hex.DecodeString(receivedHex)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(s.partnerKey))
	h.Write([]byte(rawURL))
	h.Write([]byte("|"))
	h.Write(body)
	return hmac.Equal(h.Sum(nil), received)
}

func (s *Signature) sign(base string) string {
	h := hmac.New(sha256.New, []byte(s.partnerKey))
	h.Write([]byte(base))
	return hex.EncodeToString(h.Sum(nil))
}
