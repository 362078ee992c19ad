package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"archie-core-shopee-layer/internal/domain"
	"github.com/rs/zerolog"
)

// AuthorizationHandler handles shop authorization push events. The
// token exchange itself happens on the OAuth callback; this push is
// informational confirmation from the marketplace side.
type AuthorizationHandler struct {
	logger zerolog.Logger
}

// NewAuthorizationHandler creates a new authorization push handler
func NewAuthorizationHandler(logger zerolog.Logger) *AuthorizationHandler {
	return &AuthorizationHandler{
		logger: logger,
	}
}

// CanHandle returns true if this handler can process the given push code
func (h *AuthorizationHandler) CanHandle(code int) bool {
	return code == domain.PushCodeAuthorization || code == domain.PushCodeTest
}

// Handle processes an authorization or test push event
func (h *AuthorizationHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	if event.Code == domain.PushCodeTest {
		h.logger.Info().
			Str("msgId", event.MsgID).
			Msg("Received test push from marketplace")
		return nil
	}

	var authData struct {
		Extra   string `json:"extra"`
		Success int    `json:"success"`
	}
	if err := json.Unmarshal(event.Data, &authData); err != nil {
		return fmt.Errorf("failed to parse authorization push payload: %w", err)
	}

	h.logger.Info().
		Int64("shopId", event.ShopID).
		Str("extra", authData.Extra).
		Msg("Shop authorization confirmed by marketplace")

	return nil
}
