package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"archie-core-shopee-layer/internal/domain"
	"archie-core-shopee-layer/internal/infrastructure/shopee"

	"github.com/rs/zerolog"
)

// proxyCacheTTL is the cache TTL applied to proxied GET requests. The
// proxy cannot know the endpoint's volatility class, so it uses a
// short one.
const proxyCacheTTL = time.Minute

// RESTProxy forwards arbitrary Shopee API paths through the client so
// callers get signing, rate limiting and caching without a typed
// method per endpoint.
type RESTProxy struct {
	client *shopee.Client
	logger zerolog.Logger
}

// NewRESTProxy creates a new REST proxy.
func NewRESTProxy(client *shopee.Client, logger zerolog.Logger) *RESTProxy {
	return &RESTProxy{client: client, logger: logger}
}

// HandleProxyRequest forwards /api/v1/shopee/<path> to the partner API
// as /api/v2/<path>. The shop is selected with the X-Shop-ID header.
func (p *RESTProxy) HandleProxyRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	shopID := domain.GetShopIDFromContext(ctx)
	if shopID == 0 {
		var err error
		shopID, err = domain.ParseShopID(r.Header.Get("X-Shop-ID"))
		if err != nil || shopID == 0 {
			http.Error(w, "X-Shop-ID header is required", http.StatusBadRequest)
			return
		}
	}

	const marker = "/shopee/"
	idx := strings.Index(r.URL.Path, marker)
	if idx < 0 {
		http.Error(w, "Invalid proxy path", http.StatusBadRequest)
		return
	}
	apiPath := "/api/v2/" + strings.TrimPrefix(r.URL.Path[idx+len(marker):], "/")

	var (
		resp json.RawMessage
		err  error
	)
	switch r.Method {
	case http.MethodGet:
		resp, err = p.client.Get(ctx, shopID, apiPath, r.URL.Query(), proxyCacheTTL)
	case http.MethodPost, http.MethodPut:
		var body interface{}
		raw, readErr := io.ReadAll(r.Body)
		if readErr != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		if len(raw) > 0 {
			if unmarshalErr := json.Unmarshal(raw, &body); unmarshalErr != nil {
				http.Error(w, "Request body must be JSON", http.StatusBadRequest)
				return
			}
		}
		// A proxied write may touch any resource; invalidate the whole
		// API namespace under the affected path's first segment.
		resp, err = p.client.Post(ctx, shopID, apiPath, body, invalidationPrefix(apiPath))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err != nil {
		p.writeError(w, apiPath, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(resp)
}

// invalidationPrefix maps /api/v2/product/update_stock to
// /api/v2/product/ so every cached read of that resource family goes.
func invalidationPrefix(apiPath string) string {
	trimmed := strings.TrimPrefix(apiPath, "/api/v2/")
	if i := strings.Index(trimmed, "/"); i > 0 {
		return "/api/v2/" + trimmed[:i+1]
	}
	return apiPath
}

func (p *RESTProxy) writeError(w http.ResponseWriter, apiPath string, err error) {
	status := http.StatusBadGateway
	switch {
	case shopee.IsAuthenticationError(err):
		status = http.StatusUnauthorized
	case shopee.IsApiError(err):
		status = http.StatusBadRequest
	}

	p.logger.Error().Err(err).Str("path", apiPath).Int("status", status).Msg("Proxy request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
