package pubsub

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"archie-core-shopee-layer/internal/domain"

	"github.com/rs/zerolog"
)

// subscriptionBuffer is the per-subscriber event buffer. A slow
// consumer drops events instead of holding up the webhook endpoint.
const subscriptionBuffer = 16

// WebhookEventFilter restricts a subscription to certain push codes
// and/or a single shop. A nil or zero-value filter matches everything.
type WebhookEventFilter struct {
	Codes  []int
	ShopID int64
}

func (f *WebhookEventFilter) matches(event *domain.WebhookEvent) bool {
	if f == nil {
		return true
	}
	if f.ShopID != 0 && event.ShopID != f.ShopID {
		return false
	}
	if len(f.Codes) == 0 {
		return true
	}
	for _, code := range f.Codes {
		if event.Code == code {
			return true
		}
	}
	return false
}

// WebhookSubscription is a live feed of verified push events. Events
// is closed when the subscription ends.
type WebhookSubscription struct {
	ID     string
	Filter *WebhookEventFilter
	Events chan *domain.WebhookEvent

	ctx    context.Context
	cancel context.CancelFunc
}

// WebhookPubSub fans verified push events out to in-process
// subscribers (the event stream endpoint, background workers).
// Publish never blocks: a full subscriber buffer drops the event for
// that subscriber only.
type WebhookPubSub struct {
	mu     sync.RWMutex
	subs   map[string]*WebhookSubscription
	logger zerolog.Logger
	nextID int64
}

// NewWebhookPubSub creates an empty pub/sub hub.
func NewWebhookPubSub(logger zerolog.Logger) *WebhookPubSub {
	return &WebhookPubSub{
		subs:   make(map[string]*WebhookSubscription),
		logger: logger,
	}
}

// Subscribe registers a new subscriber. The subscription ends when ctx
// is cancelled or Unsubscribe is called, whichever comes first.
func (ps *WebhookPubSub) Subscribe(ctx context.Context, filter *WebhookEventFilter) *WebhookSubscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &WebhookSubscription{
		ID:     "sub-" + strconv.FormatInt(atomic.AddInt64(&ps.nextID, 1), 10),
		Filter: filter,
		Events: make(chan *domain.WebhookEvent, subscriptionBuffer),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.subs[sub.ID] = sub
	ps.mu.Unlock()

	ps.logger.Info().
		Str("subscriptionId", sub.ID).
		Interface("filter", filter).
		Msg("Webhook subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(sub.ID)
	}()

	return sub
}

// Unsubscribe removes a subscription and closes its Events channel.
// Safe to call more than once.
func (ps *WebhookPubSub) Unsubscribe(id string) {
	ps.mu.Lock()
	sub, ok := ps.subs[id]
	if ok {
		delete(ps.subs, id)
	}
	ps.mu.Unlock()
	if !ok {
		return
	}

	sub.cancel()
	close(sub.Events)

	ps.logger.Info().
		Str("subscriptionId", id).
		Msg("Webhook subscription removed")
}

// Publish delivers an event to every subscriber whose filter matches.
func (ps *WebhookPubSub) Publish(event *domain.WebhookEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	delivered := 0
	for _, sub := range ps.subs {
		if !sub.Filter.matches(event) {
			continue
		}
		select {
		case sub.Events <- event:
			delivered++
		case <-sub.ctx.Done():
		default:
			ps.logger.Warn().
				Str("subscriptionId", sub.ID).
				Int("code", event.Code).
				Msg("Subscriber buffer full, dropping event")
		}
	}

	if delivered > 0 {
		ps.logger.Debug().
			Int("code", event.Code).
			Int64("shopId", event.ShopID).
			Int("subscribers", delivered).
			Msg("Published webhook event")
	}
}

// ActiveSubscriptions returns the number of live subscriptions.
func (ps *WebhookPubSub) ActiveSubscriptions() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs)
}
