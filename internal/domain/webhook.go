package domain

import "encoding/json"

// Shopee push codes. Unknown codes are acknowledged but not dispatched.
const (
	PushCodeTest            = 0
	PushCodeAuthorization   = 1
	PushCodeDeauthorization = 2
	PushCodeOrderStatus     = 3
	PushCodeBannedItem      = 4
)

// WebhookEvent represents a verified Shopee push event.
type WebhookEvent struct {
	Code      int             `json:"code" bson:"code"`
	ShopID    int64           `json:"shop_id" bson:"shop_id"`
	MsgID     string          `json:"msg_id" bson:"msg_id"`
	Timestamp int64           `json:"timestamp" bson:"timestamp"`
	Data      json.RawMessage `json:"data" bson:"data"`
	Verified  bool            `json:"verified" bson:"verified"`
}
