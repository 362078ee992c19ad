package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"archie-core-shopee-layer/internal/application"
	"archie-core-shopee-layer/internal/domain"
	"archie-core-shopee-layer/internal/infrastructure/pubsub"
	"archie-core-shopee-layer/internal/infrastructure/shopee"

	"github.com/rs/zerolog"
)

// WebhookLogger persists a verified push before it is dispatched.
type WebhookLogger interface {
	ProcessWebhook(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookHandler accepts Shopee push notifications. The signature is
// verified before anything else; a rejected push is answered 401 and
// never dispatched. Accepted pushes are always acknowledged with
// 200 {"message":"success"}, recognized code or not, so the
// marketplace does not enter a retry storm.
type WebhookHandler struct {
	verifier   *shopee.WebhookVerifier
	dispatcher *application.WebhookDispatcher
	events     *pubsub.WebhookPubSub
	log        WebhookLogger
	publicURL  string
	logger     zerolog.Logger
}

// NewWebhookHandler creates the push endpoint handler. publicURL is
// the externally visible URL of the endpoint, which is what the
// marketplace signed.
func NewWebhookHandler(
	verifier *shopee.WebhookVerifier,
	dispatcher *application.WebhookDispatcher,
	events *pubsub.WebhookPubSub,
	log WebhookLogger,
	publicURL string,
	logger zerolog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		events:     events,
		log:        log,
		publicURL:  publicURL,
		logger:     logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read webhook payload")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("Authorization")
	event, err := h.verifier.Verify(h.publicURL, body, signature)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Webhook rejected")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	// Log the event first; a logging failure must not delay the ack.
	if h.log != nil {
		if err := h.log.ProcessWebhook(ctx, event); err != nil {
			h.logger.Error().Err(err).Str("msgId", event.MsgID).Msg("Failed to log webhook event")
		}
	}

	if h.events != nil {
		h.events.Publish(event)
	}

	if err := h.dispatcher.Dispatch(ctx, event); err != nil {
		h.logger.Error().
			Err(err).
			Int("code", event.Code).
			Int64("shopId", event.ShopID).
			Msg("Failed to dispatch webhook event")
		// Still acknowledge: the push was verified and logged, and a
		// marketplace retry would not make the handler succeed.
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "success"})
}
