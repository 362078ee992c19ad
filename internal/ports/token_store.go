package ports

import (
	"context"

	"archie-core-shopee-layer/internal/domain"
)

// TokenStore defines the interface for shop token persistence.
// Tokens are persisted after every exchange and refresh; the token
// manager never hands out a token set that has not been saved.
type TokenStore interface {
	// LoadTokens retrieves the token set for a shop, nil if unknown.
	LoadTokens(ctx context.Context, shopID int64) (*domain.Shop, error)

	// SaveTokens saves or updates a shop's token set.
	SaveTokens(ctx context.Context, shop *domain.Shop) error

	// MarkDisconnected flags a shop whose refresh token was rejected.
	// The shop must re-run the authorization grant to reconnect.
	MarkDisconnected(ctx context.Context, shopID int64) error

	// ListShops retrieves all connected shops.
	ListShops(ctx context.Context) ([]*domain.Shop, error)
}
