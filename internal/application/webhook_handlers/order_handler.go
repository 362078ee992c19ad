package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"archie-core-shopee-layer/internal/domain"
	"github.com/rs/zerolog"
)

// OrderHandler handles order status push events
type OrderHandler struct {
	logger zerolog.Logger
}

// NewOrderHandler creates a new order push handler
func NewOrderHandler(logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given push code
func (h *OrderHandler) CanHandle(code int) bool {
	return code == domain.PushCodeOrderStatus
}

// Handle processes an order status push event
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var orderData struct {
		OrderSN           string `json:"ordersn"`
		Status            string `json:"status"`
		CompletedScenario string `json:"completed_scenario"`
		UpdateTime        int64  `json:"update_time"`
	}
	if err := json.Unmarshal(event.Data, &orderData); err != nil {
		return fmt.Errorf("failed to parse order push payload: %w", err)
	}

	h.logger.Info().
		Int64("shopId", event.ShopID).
		Str("orderSn", orderData.OrderSN).
		Str("status", orderData.Status).
		Int64("updateTime", orderData.UpdateTime).
		Msg("Processing order status push")

	// Order events are already logged to the database before dispatch.
	// Additional business logic hooks in here:
	//  - update order status in the local database
	//  - trigger merchant notifications
	//  - sync with external systems (ERP, CRM)

	switch orderData.Status {
	case "READY_TO_SHIP":
		h.logger.Info().Int64("shopId", event.ShopID).Str("orderSn", orderData.OrderSN).Msg("Order ready to ship")
	case "CANCELLED":
		h.logger.Info().Int64("shopId", event.ShopID).Str("orderSn", orderData.OrderSN).Msg("Order cancelled")
	case "COMPLETED":
		h.logger.Info().Int64("shopId", event.ShopID).Str("orderSn", orderData.OrderSN).Msg("Order completed")
	}

	return nil
}
