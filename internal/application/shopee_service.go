package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"archie-core-shopee-layer/internal/domain"
	"archie-core-shopee-layer/internal/infrastructure/shopee"
	"archie-core-shopee-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ShopeeService implements the application business logic around the
// Shopee client: the authorization flow, shop data reads/writes, and
// webhook event logging. It depends on ports and the shopee
// infrastructure, never the other way around.
type ShopeeService struct {
	client     *shopee.Client
	authClient *shopee.AuthClient
	tokens     *shopee.TokenManager
	store      ports.TokenStore
	webhookLog ports.WebhookLogRepository
	logger     zerolog.Logger
	region     string
}

// NewShopeeService creates a new Shopee application service.
func NewShopeeService(
	client *shopee.Client,
	authClient *shopee.AuthClient,
	tokens *shopee.TokenManager,
	store ports.TokenStore,
	webhookLog ports.WebhookLogRepository,
	logger zerolog.Logger,
	region string,
) *ShopeeService {
	return &ShopeeService{
		client:     client,
		authClient: authClient,
		tokens:     tokens,
		store:      store,
		webhookLog: webhookLog,
		logger:     logger,
		region:     region,
	}
}

// AuthorizationURL builds the signed auth_partner URL the merchant is
// redirected to for the one-time grant.
func (s *ShopeeService) AuthorizationURL(state string) string {
	return s.authClient.AuthorizationURL(state)
}

// CompleteAuthorization exchanges the callback code for a token pair
// and persists the connected shop.
func (s *ShopeeService) CompleteAuthorization(ctx context.Context, code string, shopID int64) (*domain.Shop, error) {
	if code == "" || shopID == 0 {
		return nil, fmt.Errorf("code and shop_id are required")
	}

	shop, err := s.tokens.Exchange(ctx, code, shopID, s.region)
	if err != nil {
		s.logger.Error().Err(err).Int64("shopId", shopID).Msg("Failed to complete authorization")
		return nil, err
	}

	s.logger.Info().
		Int64("shopId", shopID).
		Msg("Shop connected")

	return shop, nil
}

// GetShopInfo returns the shop profile (cached 1h).
func (s *ShopeeService) GetShopInfo(ctx context.Context, shopID int64) (json.RawMessage, error) {
	return s.client.GetShopInfo(ctx, shopID)
}

// GetProducts returns a page of the shop's items.
func (s *ShopeeService) GetProducts(ctx context.Context, shopID int64, offset, pageSize int) (json.RawMessage, error) {
	return s.client.GetItemList(ctx, shopID, offset, pageSize)
}

// GetProductDetails returns base info for the given item ids.
func (s *ShopeeService) GetProductDetails(ctx context.Context, shopID int64, itemIDs []int64) (json.RawMessage, error) {
	return s.client.GetItemBaseInfo(ctx, shopID, itemIDs)
}

// GetOrders returns orders created in the given window.
func (s *ShopeeService) GetOrders(ctx context.Context, shopID int64, from, to time.Time, pageSize int) (json.RawMessage, error) {
	return s.client.GetOrderList(ctx, shopID, from, to, pageSize)
}

// GetOrderDetails returns details for the given order serial numbers.
func (s *ShopeeService) GetOrderDetails(ctx context.Context, shopID int64, orderSNs []string) (json.RawMessage, error) {
	return s.client.GetOrderDetail(ctx, shopID, orderSNs)
}

// UpdateStock updates an item's stock.
func (s *ShopeeService) UpdateStock(ctx context.Context, shopID int64, itemID int64, stock int) (json.RawMessage, error) {
	return s.client.UpdateStock(ctx, shopID, itemID, stock)
}

// UpdatePrice updates an item's price.
func (s *ShopeeService) UpdatePrice(ctx context.Context, shopID int64, itemID int64, price float64) (json.RawMessage, error) {
	return s.client.UpdatePrice(ctx, shopID, itemID, price)
}

// UploadImage uploads a base64 image through the media rate bucket.
func (s *ShopeeService) UploadImage(ctx context.Context, shopID int64, imageBase64 string) (json.RawMessage, error) {
	return s.client.UploadImage(ctx, shopID, imageBase64)
}

// ListShops returns all connected shops. Tokens stay encrypted; this
// listing never exposes plaintext credentials.
func (s *ShopeeService) ListShops(ctx context.Context) ([]*domain.Shop, error) {
	shops, err := s.store.ListShops(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list shops")
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	return shops, nil
}

// ProcessWebhook logs a verified push event before dispatch. Logging
// failures are reported but must not block the acknowledgment.
func (s *ShopeeService) ProcessWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	if err := s.webhookLog.LogWebhook(ctx, event); err != nil {
		return fmt.Errorf("failed to log webhook event: %w", err)
	}
	return nil
}
