package webhook_handlers

import (
	"context"

	"archie-core-shopee-layer/internal/domain"
	"archie-core-shopee-layer/internal/ports"

	"github.com/rs/zerolog"
)

// TokenForgetter drops a shop's in-memory token set.
type TokenForgetter interface {
	Forget(shopID int64)
}

// DeauthorizationHandler handles shop deauthorization push events: the
// merchant revoked the integration from the Shopee side. The shop is
// marked disconnected and its tokens are dropped from memory so no
// further calls are signed with them.
type DeauthorizationHandler struct {
	logger zerolog.Logger
	store  ports.TokenStore
	tokens TokenForgetter
}

// NewDeauthorizationHandler creates a new deauthorization push handler
func NewDeauthorizationHandler(logger zerolog.Logger, store ports.TokenStore, tokens TokenForgetter) *DeauthorizationHandler {
	return &DeauthorizationHandler{
		logger: logger,
		store:  store,
		tokens: tokens,
	}
}

// CanHandle returns true if this handler can process the given push code
func (h *DeauthorizationHandler) CanHandle(code int) bool {
	return code == domain.PushCodeDeauthorization
}

// Handle processes a deauthorization push event
func (h *DeauthorizationHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.logger.Warn().
		Int64("shopId", event.ShopID).
		Str("msgId", event.MsgID).
		Msg("Shop deauthorized the integration")

	if err := h.store.MarkDisconnected(ctx, event.ShopID); err != nil {
		h.logger.Error().Err(err).Int64("shopId", event.ShopID).Msg("Failed to mark shop disconnected")
		// Acknowledge anyway: the push must not be retried. The in-memory
		// tokens are still dropped below.
	}

	if h.tokens != nil {
		h.tokens.Forget(event.ShopID)
	}

	return nil
}
