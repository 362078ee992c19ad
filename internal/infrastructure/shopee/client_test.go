package shopee

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"archie-core-shopee-layer/internal/domain"
	"archie-core-shopee-layer/internal/infrastructure/cache"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() Credentials {
	return Credentials{PartnerID: 2011285, PartnerKey: testPartnerKey, Region: "sandbox"}
}

func testClientConfig() map[TrafficClass]BucketConfig {
	return map[TrafficClass]BucketConfig{
		ClassDefault: {MaxConcurrent: 5, Reservoir: 1000, RefillAmount: 1000, RefillInterval: time.Minute},
		ClassMedia:   {MaxConcurrent: 2, Reservoir: 1000, RefillAmount: 1000, RefillInterval: time.Minute},
	}
}

// newTestClient wires a client against a scripted HTTP server with a
// real token manager, limiter and in-memory cache.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeTransport, *fakeStore, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	transport := &fakeTransport{
		refreshResp: &TokenResponse{AccessToken: "fresh-token", RefreshToken: "refresh-2", ExpireIn: 14400},
	}
	store := newFakeStore()
	store.shops[42] = &domain.Shop{
		ShopID:       42,
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	tm := NewTokenManager(transport, store, plainCrypto{}, zerolog.Nop())

	limiter := NewRateLimiterWithConfig(testClientConfig(), zerolog.Nop())
	t.Cleanup(limiter.Close)

	client, err := NewClient(testCreds(), server.URL, tm, limiter, cache.NewMemoryCache(), zerolog.Nop())
	require.NoError(t, err)
	return client, transport, store, server
}

func TestClient_RetriesOnceOnAuthFailureThenSucceeds(t *testing.T) {
	var requests int64
	client, transport, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		if r.URL.Query().Get("access_token") == "stale-token" {
			w.Write([]byte(`{"error":"error_auth","message":"Invalid access_token.","request_id":"req-1"}`))
			return
		}
		w.Write([]byte(`{"error":"","request_id":"req-2","response":{"shop_name":"demo"}}`))
	})

	resp, err := client.Get(context.Background(), 42, pathShopInfo, nil, 0)
	require.NoError(t, err)
	assert.Contains(t, string(resp), "demo")
	assert.Equal(t, int64(2), atomic.LoadInt64(&requests))
	assert.Equal(t, int64(1), atomic.LoadInt64(&transport.refreshCalls))
}

func TestClient_SingleRetryCeiling(t *testing.T) {
	var requests int64
	client, transport, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		// Reject every token, refreshed or not
		w.Write([]byte(`{"error":"error_auth","message":"Invalid access_token.","request_id":"req-1"}`))
	})

	_, err := client.Get(context.Background(), 42, pathShopInfo, nil, 0)
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)

	assert.Equal(t, int64(2), atomic.LoadInt64(&requests), "exactly one retry")
	assert.Equal(t, int64(1), atomic.LoadInt64(&transport.refreshCalls), "exactly one forced refresh")
}

func TestClient_ServesCachedGet(t *testing.T) {
	var requests int64
	client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Write([]byte(`{"error":"","request_id":"req-1","response":{"shop_name":"demo"}}`))
	})

	ctx := context.Background()
	first, err := client.Get(ctx, 42, pathShopInfo, nil, time.Minute)
	require.NoError(t, err)
	second, err := client.Get(ctx, 42, pathShopInfo, nil, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, int64(1), atomic.LoadInt64(&requests), "second read must come from cache")
}

func TestClient_PostInvalidatesCachedReads(t *testing.T) {
	var requests int64
	client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Write([]byte(`{"error":"","request_id":"req-1","response":{"item_id":7}}`))
	})

	ctx := context.Background()
	_, err := client.Get(ctx, 42, pathItemList, url.Values{}, time.Minute)
	require.NoError(t, err)
	_, err = client.Get(ctx, 42, pathItemList, url.Values{}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), atomic.LoadInt64(&requests))

	_, err = client.UpdateStock(ctx, 42, 7, 100)
	require.NoError(t, err)

	_, err = client.Get(ctx, 42, pathItemList, url.Values{}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), atomic.LoadInt64(&requests), "write must invalidate cached product reads")
}

func TestClient_NormalizesRemoteErrors(t *testing.T) {
	var requests int64
	client, transport, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.Write([]byte(`{"error":"error_param","message":"Invalid page_size.","request_id":"req-77"}`))
	})

	_, err := client.Get(context.Background(), 42, pathItemList, nil, 0)
	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "error_param", apiErr.Code)
	assert.Equal(t, "req-77", apiErr.RequestID)

	assert.Equal(t, int64(1), atomic.LoadInt64(&requests), "validation errors must not be retried")
	assert.Zero(t, atomic.LoadInt64(&transport.refreshCalls))
}

func TestClient_ConnectionFailureIsNetworkError(t *testing.T) {
	client, _, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.Get(context.Background(), 42, pathShopInfo, nil, 0)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestClient_SignsRequests(t *testing.T) {
	sig := NewSignature(testPartnerKey)
	client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ts, err := strconv.ParseInt(q.Get("timestamp"), 10, 64)
		require.NoError(t, err)
		expected := sig.SignShop(2011285, r.URL.Path, ts, q.Get("access_token"), 42)
		if q.Get("sign") != expected {
			w.Write([]byte(`{"error":"error_sign","message":"Wrong sign.","request_id":"req-9"}`))
			return
		}
		w.Write([]byte(`{"error":"","request_id":"req-10","response":{}}`))
	})

	_, err := client.Get(context.Background(), 42, pathShopInfo, nil, 0)
	require.NoError(t, err)
}

func TestClassForPath(t *testing.T) {
	assert.Equal(t, ClassMedia, classForPath(pathUploadImage))
	assert.Equal(t, ClassDefault, classForPath(pathShopInfo))
	assert.Equal(t, ClassDefault, classForPath(pathOrderList))
}
