package entity

import (
	"time"

	"archie-core-shopee-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoShopDoc is the MongoDB document for a connected shop. Tokens
// are stored encrypted.
type MongoShopDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	ShopID       int64              `bson:"shop_id"`
	Region       string             `bson:"region"`
	AccessToken  string             `bson:"access_token"`
	RefreshToken string             `bson:"refresh_token"`
	ExpiresAt    time.Time          `bson:"expires_at"`
	Disconnected bool               `bson:"disconnected"`
	ConnectedAt  time.Time          `bson:"connected_at"`
	CreatedAt    time.Time          `bson:"created_at,omitempty"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// MongoShopDocFromDomain converts a domain shop to its document form.
func MongoShopDocFromDomain(shop *domain.Shop) *MongoShopDoc {
	return &MongoShopDoc{
		ShopID:       shop.ShopID,
		Region:       shop.Region,
		AccessToken:  shop.AccessToken,
		RefreshToken: shop.RefreshToken,
		ExpiresAt:    shop.ExpiresAt,
		Disconnected: shop.Disconnected,
		ConnectedAt:  shop.ConnectedAt,
	}
}

// ToDomain converts the document back to the domain shop.
func (d *MongoShopDoc) ToDomain() *domain.Shop {
	return &domain.Shop{
		ShopID:       d.ShopID,
		Region:       d.Region,
		AccessToken:  d.AccessToken,
		RefreshToken: d.RefreshToken,
		ExpiresAt:    d.ExpiresAt,
		Disconnected: d.Disconnected,
		ConnectedAt:  d.ConnectedAt,
	}
}

// MongoWebhookDoc is the MongoDB document for a verified push event.
type MongoWebhookDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Code      int                `bson:"code"`
	ShopID    int64              `bson:"shop_id"`
	MsgID     string             `bson:"msg_id"`
	Timestamp int64              `bson:"timestamp"`
	Data      []byte             `bson:"data"`
	Verified  bool               `bson:"verified"`
	CreatedAt time.Time          `bson:"created_at"`
}

// MongoWebhookDocFromDomain converts a webhook event to its document form.
func MongoWebhookDocFromDomain(event *domain.WebhookEvent) *MongoWebhookDoc {
	return &MongoWebhookDoc{
		Code:      event.Code,
		ShopID:    event.ShopID,
		MsgID:     event.MsgID,
		Timestamp: event.Timestamp,
		Data:      event.Data,
		Verified:  event.Verified,
	}
}
