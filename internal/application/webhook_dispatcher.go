package application

import (
	"context"
	"fmt"

	"archie-core-shopee-layer/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes verified push events for the codes it claims.
type WebhookHandler interface {
	CanHandle(code int) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes verified push events to registered
// handlers. Unknown codes are logged and acknowledged, not treated as
// errors: the marketplace must always get a prompt 200 to avoid retry
// storms.
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher.
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler to the dispatch chain.
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch hands the event to every handler that claims its code.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	dispatched := 0
	for _, handler := range d.handlers {
		if !handler.CanHandle(event.Code) {
			continue
		}
		dispatched++
		if err := handler.Handle(ctx, event); err != nil {
			return fmt.Errorf("webhook handler failed for code %d: %w", event.Code, err)
		}
	}

	if dispatched == 0 {
		d.logger.Info().
			Int("code", event.Code).
			Int64("shopId", event.ShopID).
			Str("msgId", event.MsgID).
			Msg("No handler registered for push code, acknowledging")
	}
	return nil
}
