package domain

import (
	"context"
	"strconv"
)

type contextKey string

const shopIDKey contextKey = "shop_id"

// WithShopID stores the shop ID in the context (type-safe).
func WithShopID(ctx context.Context, shopID int64) context.Context {
	return context.WithValue(ctx, shopIDKey, shopID)
}

// GetShopIDFromContext retrieves the shop ID from the context, 0 if absent.
func GetShopIDFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(shopIDKey).(int64); ok {
		return v
	}
	return 0
}

// ParseShopID parses a shop ID from its string form (headers, URL params).
func ParseShopID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
