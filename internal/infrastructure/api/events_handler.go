package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"archie-core-shopee-layer/internal/domain"
	"archie-core-shopee-layer/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
)

// EventStreamHandler exposes verified push events as a server-sent
// event stream, so dashboards and workers can follow shop activity
// live instead of polling the webhook log. Filters via query string:
// repeatable code params and an optional shop_id.
type EventStreamHandler struct {
	events *pubsub.WebhookPubSub
	logger zerolog.Logger
}

// NewEventStreamHandler creates the event stream endpoint handler.
func NewEventStreamHandler(events *pubsub.WebhookPubSub, logger zerolog.Logger) *EventStreamHandler {
	return &EventStreamHandler{events: events, logger: logger}
}

// ServeHTTP implements http.Handler. The stream stays open until the
// client disconnects.
func (h *EventStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	filter, err := filterFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub := h.events.Subscribe(r.Context(), filter)
	defer h.events.Unsubscribe(sub.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Info().
		Str("subscriptionId", sub.ID).
		Str("remote", r.RemoteAddr).
		Msg("Event stream opened")

	for {
		select {
		case event, open := <-sub.Events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error().Err(err).Str("msgId", event.MsgID).Msg("Failed to encode event for stream")
				continue
			}
			fmt.Fprintf(w, "event: push\ndata: %s\n\n", payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func filterFromQuery(q url.Values) (*pubsub.WebhookEventFilter, error) {
	filter := &pubsub.WebhookEventFilter{}
	for _, raw := range q["code"] {
		code, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid code %q", raw)
		}
		filter.Codes = append(filter.Codes, code)
	}
	if raw := q.Get("shop_id"); raw != "" {
		shopID, err := domain.ParseShopID(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid shop_id %q", raw)
		}
		filter.ShopID = shopID
	}
	return filter, nil
}
