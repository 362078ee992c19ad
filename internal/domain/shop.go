package domain

import "time"

// Shop represents a connected Shopee shop and its token set.
// AccessToken and RefreshToken are stored encrypted at rest; the
// token manager is the only component that sees them decrypted.
type Shop struct {
	ShopID       int64     `json:"shop_id" bson:"shop_id"`
	Region       string    `json:"region" bson:"region"`
	AccessToken  string    `json:"access_token" bson:"access_token"`
	RefreshToken string    `json:"refresh_token" bson:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at" bson:"expires_at"`
	Disconnected bool      `json:"disconnected" bson:"disconnected"`
	ConnectedAt  time.Time `json:"connected_at" bson:"connected_at"`
}
