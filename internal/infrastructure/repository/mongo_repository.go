package repository

import (
	"context"
	"fmt"
	"time"

	"archie-core-shopee-layer/internal/domain"
	"archie-core-shopee-layer/internal/infrastructure/repository/entity"
	"archie-core-shopee-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements TokenStore and WebhookLogRepository using
// MongoDB.
type MongoRepository struct {
	shopsCollection    *mongo.Collection
	webhooksCollection *mongo.Collection
}

// NewMongoRepository creates a new MongoDB repository.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		shopsCollection:    db.Collection("shops"),
		webhooksCollection: db.Collection("webhook_events"),
	}
}

// SaveTokens saves or updates a shop's token set.
func (r *MongoRepository) SaveTokens(ctx context.Context, shop *domain.Shop) error {
	filter, update := tokenUpsert(shop, time.Now())
	opts := options.Update().SetUpsert(true)

	_, err := r.shopsCollection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}

	return nil
}

// tokenUpsert builds the upsert for a token save. created_at is only
// written on insert; a refresh must not reset it.
func tokenUpsert(shop *domain.Shop, now time.Time) (bson.M, bson.M) {
	doc := entity.MongoShopDocFromDomain(shop)
	doc.UpdatedAt = now

	filter := bson.M{"shop_id": shop.ShopID}
	update := bson.M{
		"$set":         doc,
		"$setOnInsert": bson.M{"created_at": now},
	}
	return filter, update
}

// LoadTokens retrieves the token set for a shop, nil if unknown.
func (r *MongoRepository) LoadTokens(ctx context.Context, shopID int64) (*domain.Shop, error) {
	var doc entity.MongoShopDoc
	filter := bson.M{"shop_id": shopID}

	err := r.shopsCollection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}

	return doc.ToDomain(), nil
}

// MarkDisconnected flags a shop whose refresh token was rejected.
func (r *MongoRepository) MarkDisconnected(ctx context.Context, shopID int64) error {
	filter := bson.M{"shop_id": shopID}
	update := bson.M{"$set": bson.M{"disconnected": true, "updated_at": time.Now()}}

	_, err := r.shopsCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark shop disconnected: %w", err)
	}

	return nil
}

// ListShops retrieves all connected shops.
func (r *MongoRepository) ListShops(ctx context.Context) ([]*domain.Shop, error) {
	cursor, err := r.shopsCollection.Find(ctx, bson.M{"disconnected": false})
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer cursor.Close(ctx)

	var shops []*domain.Shop
	for cursor.Next(ctx) {
		var doc entity.MongoShopDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode shop: %w", err)
		}
		shops = append(shops, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return shops, nil
}

// LogWebhook logs a verified push event.
func (r *MongoRepository) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	doc := entity.MongoWebhookDocFromDomain(event)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err := r.webhooksCollection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}

	return nil
}

var (
	_ ports.TokenStore           = (*MongoRepository)(nil)
	_ ports.WebhookLogRepository = (*MongoRepository)(nil)
)
