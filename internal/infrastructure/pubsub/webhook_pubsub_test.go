package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"archie-core-shopee-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent(code int, shopID int64, msgID string) *domain.WebhookEvent {
	return &domain.WebhookEvent{
		Code:      code,
		ShopID:    shopID,
		MsgID:     msgID,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"ordersn":"2311080ABC"}`),
		Verified:  true,
	}
}

func TestWebhookPubSub_DeliversMatchingEvents(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())

	orders := ps.Subscribe(context.Background(), &WebhookEventFilter{Codes: []int{domain.PushCodeOrderStatus}})
	defer ps.Unsubscribe(orders.ID)
	all := ps.Subscribe(context.Background(), nil)
	defer ps.Unsubscribe(all.ID)

	ps.Publish(newTestEvent(domain.PushCodeOrderStatus, 789001, "msg-order"))
	ps.Publish(newTestEvent(domain.PushCodeBannedItem, 789001, "msg-banned"))

	assert.Len(t, orders.Events, 1)
	assert.Len(t, all.Events, 2)

	event := <-orders.Events
	assert.Equal(t, "msg-order", event.MsgID)
}

func TestWebhookPubSub_FiltersByShop(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())

	sub := ps.Subscribe(context.Background(), &WebhookEventFilter{ShopID: 789001})
	defer ps.Unsubscribe(sub.ID)

	ps.Publish(newTestEvent(domain.PushCodeOrderStatus, 789001, "msg-mine"))
	ps.Publish(newTestEvent(domain.PushCodeOrderStatus, 555000, "msg-other"))

	require.Len(t, sub.Events, 1)
	event := <-sub.Events
	assert.Equal(t, int64(789001), event.ShopID)
}

func TestWebhookPubSub_UnsubscribeClosesChannel(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())

	sub := ps.Subscribe(context.Background(), nil)
	require.Equal(t, 1, ps.ActiveSubscriptions())

	ps.Unsubscribe(sub.ID)
	ps.Unsubscribe(sub.ID) // second call is a no-op

	_, open := <-sub.Events
	assert.False(t, open)
	assert.Zero(t, ps.ActiveSubscriptions())

	// Publishing with no subscribers must not panic
	ps.Publish(newTestEvent(domain.PushCodeTest, 789001, "msg-late"))
}

func TestWebhookPubSub_ContextCancellationUnsubscribes(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	ps.Subscribe(ctx, nil)
	require.Equal(t, 1, ps.ActiveSubscriptions())

	cancel()

	require.Eventually(t, func() bool {
		return ps.ActiveSubscriptions() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestWebhookPubSub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	ps := NewWebhookPubSub(zerolog.Nop())

	sub := ps.Subscribe(context.Background(), nil)
	defer ps.Unsubscribe(sub.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriptionBuffer+5; i++ {
			ps.Publish(newTestEvent(domain.PushCodeOrderStatus, 789001, "msg-flood"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}

	assert.Len(t, sub.Events, subscriptionBuffer)
}
