package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"archie-core-shopee-layer/internal/domain"
	"github.com/rs/zerolog"
)

// ProductHandler handles item-related push events (currently banned item)
type ProductHandler struct {
	logger zerolog.Logger
}

// NewProductHandler creates a new product push handler
func NewProductHandler(logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given push code
func (h *ProductHandler) CanHandle(code int) bool {
	return code == domain.PushCodeBannedItem
}

// Handle processes a banned item push event
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var itemData struct {
		ItemID int64  `json:"item_id"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(event.Data, &itemData); err != nil {
		return fmt.Errorf("failed to parse item push payload: %w", err)
	}

	h.logger.Warn().
		Int64("shopId", event.ShopID).
		Int64("itemId", itemData.ItemID).
		Str("reason", itemData.Reason).
		Msg("Item banned by marketplace")

	return nil
}
