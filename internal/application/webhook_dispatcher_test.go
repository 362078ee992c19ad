package application

import (
	"context"
	"errors"
	"testing"

	"archie-core-shopee-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	codes   map[int]bool
	err     error
	handled []*domain.WebhookEvent
}

func (h *recordingHandler) CanHandle(code int) bool { return h.codes[code] }

func (h *recordingHandler) Handle(_ context.Context, event *domain.WebhookEvent) error {
	h.handled = append(h.handled, event)
	return h.err
}

func TestWebhookDispatcher_RoutesByCode(t *testing.T) {
	orders := &recordingHandler{codes: map[int]bool{domain.PushCodeOrderStatus: true}}
	products := &recordingHandler{codes: map[int]bool{domain.PushCodeBannedItem: true}}

	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(orders)
	d.RegisterHandler(products)

	event := &domain.WebhookEvent{Code: domain.PushCodeOrderStatus, ShopID: 42, MsgID: "msg-1", Verified: true}
	require.NoError(t, d.Dispatch(context.Background(), event))

	require.Len(t, orders.handled, 1)
	assert.Equal(t, "msg-1", orders.handled[0].MsgID)
	assert.Empty(t, products.handled)
}

func TestWebhookDispatcher_UnknownCodeIsAcknowledged(t *testing.T) {
	orders := &recordingHandler{codes: map[int]bool{domain.PushCodeOrderStatus: true}}

	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(orders)

	event := &domain.WebhookEvent{Code: 99, ShopID: 42, Verified: true}
	assert.NoError(t, d.Dispatch(context.Background(), event), "unknown codes must not error")
	assert.Empty(t, orders.handled)
}

func TestWebhookDispatcher_PropagatesHandlerError(t *testing.T) {
	failing := &recordingHandler{
		codes: map[int]bool{domain.PushCodeOrderStatus: true},
		err:   errors.New("downstream unavailable"),
	}

	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(failing)

	event := &domain.WebhookEvent{Code: domain.PushCodeOrderStatus, ShopID: 42, Verified: true}
	err := d.Dispatch(context.Background(), event)
	assert.ErrorContains(t, err, "downstream unavailable")
}

func TestWebhookDispatcher_MultipleHandlersForSameCode(t *testing.T) {
	first := &recordingHandler{codes: map[int]bool{domain.PushCodeTest: true}}
	second := &recordingHandler{codes: map[int]bool{domain.PushCodeTest: true}}

	d := NewWebhookDispatcher(zerolog.Nop())
	d.RegisterHandler(first)
	d.RegisterHandler(second)

	event := &domain.WebhookEvent{Code: domain.PushCodeTest, Verified: true}
	require.NoError(t, d.Dispatch(context.Background(), event))

	assert.Len(t, first.handled, 1)
	assert.Len(t, second.handled, 1)
}
