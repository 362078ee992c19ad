package shopee

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"archie-core-shopee-layer/internal/ports"

	"github.com/rs/zerolog"
)

// requestTimeout is the hard per-call network timeout.
const requestTimeout = 30 * time.Second

// envelope is the common wrapper of every Shopee API response.
type envelope struct {
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Response  json.RawMessage `json:"response"`
}

// Client executes signed, rate-limited, cached requests against the
// Shopee partner API. Retry policy: exactly one retry, and only when
// the remote reports an authentication failure; the retry forces a
// token refresh before re-signing.
type Client struct {
	creds      Credentials
	baseURL    string
	signature  *Signature
	tokens     *TokenManager
	limiter    *RateLimiter
	cache      ports.ResponseCache
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Shopee API client. baseURL overrides the region
// host when non-empty (tests point it at a fake server).
func NewClient(
	creds Credentials,
	baseURL string,
	tokens *TokenManager,
	limiter *RateLimiter,
	cache ports.ResponseCache,
	logger zerolog.Logger,
) (*Client, error) {
	if baseURL == "" {
		var err error
		baseURL, err = creds.BaseURL()
		if err != nil {
			return nil, err
		}
	}
	return &Client{
		creds:      creds,
		baseURL:    baseURL,
		signature:  NewSignature(creds.PartnerKey),
		tokens:     tokens,
		limiter:    limiter,
		cache:      cache,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}, nil
}

// Get issues a shop-scoped GET request. When ttl > 0 the response is
// served from and written to the cache.
func (c *Client) Get(ctx context.Context, shopID int64, path string, params url.Values, ttl time.Duration) (json.RawMessage, error) {
	var cacheKey string
	if ttl > 0 && c.cache != nil {
		cacheKey = c.cacheKey(shopID, path, params)
		if cached, ok := c.cache.Get(ctx, cacheKey); ok {
			cacheHitsTotal.WithLabelValues("hit").Inc()
			return cached, nil
		}
		cacheHitsTotal.WithLabelValues("miss").Inc()
	}

	body, err := c.execute(ctx, http.MethodGet, shopID, path, params, nil)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		c.cache.Set(ctx, cacheKey, body, ttl)
	}
	return body, nil
}

// Post issues a shop-scoped POST request. Cache entries under the
// given prefixes are invalidated before the response is returned.
func (c *Client) Post(ctx context.Context, shopID int64, path string, payload interface{}, invalidate ...string) (json.RawMessage, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	resp, err := c.execute(ctx, http.MethodPost, shopID, path, nil, body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		for _, prefix := range invalidate {
			c.cache.Invalidate(ctx, c.cachePrefix(shopID, prefix))
		}
	}
	return resp, nil
}

// execute runs the request once, retrying a single time on a remote
// authentication failure after forcing a token refresh.
func (c *Client) execute(ctx context.Context, method string, shopID int64, path string, params url.Values, body []byte) (json.RawMessage, error) {
	shop, err := c.tokens.GetValid(ctx, shopID)
	if err != nil {
		return nil, err
	}

	resp, err := c.attempt(ctx, method, path, params, body, shop.AccessToken, shopID)
	if err == nil {
		return resp, nil
	}
	if !isAuthFailure(err) {
		return nil, err
	}

	// The remote rejected a token that looked valid locally. Force a
	// refresh and retry exactly once.
	authRetriesTotal.Inc()
	c.logger.Warn().
		Int64("shopId", shopID).
		Str("path", path).
		Msg("Remote reported authentication failure, refreshing and retrying once")

	shop, err = c.tokens.ForceRefresh(ctx, shopID)
	if err != nil {
		return nil, err
	}

	resp, err = c.attempt(ctx, method, path, params, body, shop.AccessToken, shopID)
	if err == nil {
		return resp, nil
	}
	if isAuthFailure(err) {
		return nil, &AuthenticationError{ShopID: shopID, Reason: "token rejected after refresh"}
	}
	return nil, err
}

// attempt performs a single signed request through the rate limiter.
// The permit is released unconditionally, error paths included.
func (c *Client) attempt(ctx context.Context, method, path string, params url.Values, body []byte, accessToken string, shopID int64) (json.RawMessage, error) {
	permit, err := c.limiter.Acquire(ctx, classForPath(path))
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	ts := time.Now().Unix()
	sign := c.signature.SignShop(c.creds.PartnerID, path, ts, accessToken, shopID)

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("partner_id", fmt.Sprintf("%d", c.creds.PartnerID))
	q.Set("timestamp", fmt.Sprintf("%d", ts))
	q.Set("access_token", accessToken)
	q.Set("shop_id", fmt.Sprintf("%d", shopID))
	q.Set("sign", sign)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+q.Encode(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		apiRequestsTotal.WithLabelValues(path, "network_error").Inc()
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		apiRequestsTotal.WithLabelValues(path, "network_error").Inc()
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		apiRequestsTotal.WithLabelValues(path, "malformed").Inc()
		return nil, &NetworkError{Op: method + " " + path, Err: fmt.Errorf("malformed response: %w", err)}
	}

	if httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden || isAuthErrorCode(env.Error) {
		apiRequestsTotal.WithLabelValues(path, "auth_error").Inc()
		return nil, &ApiError{Code: nonEmpty(env.Error, "error_auth"), Message: env.Message, RequestID: env.RequestID}
	}
	if env.Error != "" {
		apiRequestsTotal.WithLabelValues(path, "api_error").Inc()
		return nil, &ApiError{Code: env.Error, Message: env.Message, RequestID: env.RequestID}
	}
	if httpResp.StatusCode != http.StatusOK {
		apiRequestsTotal.WithLabelValues(path, "http_error").Inc()
		return nil, &NetworkError{Op: method + " " + path, Err: fmt.Errorf("unexpected status %d", httpResp.StatusCode)}
	}

	apiRequestsTotal.WithLabelValues(path, "success").Inc()
	return raw, nil
}

func (c *Client) cacheKey(shopID int64, path string, params url.Values) string {
	key := c.cachePrefix(shopID, path)
	if encoded := params.Encode(); encoded != "" {
		key += "?" + encoded
	}
	return key
}

func (c *Client) cachePrefix(shopID int64, path string) string {
	return fmt.Sprintf("shopee:%d:%s", shopID, path)
}

// classForPath maps an endpoint to its traffic class. Media space
// endpoints share the restrictive bucket.
func classForPath(path string) TrafficClass {
	if strings.HasPrefix(path, "/api/v2/media_space/") {
		return ClassMedia
	}
	return ClassDefault
}

// isAuthErrorCode reports whether a Shopee error code means the access
// token was rejected.
func isAuthErrorCode(code string) bool {
	switch code {
	case "error_auth", "error_permission", "invalid_access_token", "error_invalid_access_token":
		return true
	}
	return false
}

// isAuthFailure reports whether an attempt failed because the remote
// rejected the token. Only these failures are eligible for the single
// refresh-and-retry.
func isAuthFailure(err error) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return isAuthErrorCode(apiErr.Code)
	}
	return false
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
