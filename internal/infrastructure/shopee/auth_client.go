package shopee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Paths for the authorization grant and token lifecycle. These are the
// only calls signed without an access token or shop id.
const (
	pathAuthPartner = "/api/v2/shop/auth_partner"
	pathTokenGet    = "/api/v2/auth/token/get"
	pathAccessToken = "/api/v2/auth/access_token/get"
	pathCancelAuth  = "/api/v2/shop/cancel_auth_partner"
)

// TokenResponse is the wire response of the token endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireIn     int64  `json:"expire_in"`
	RequestID    string `json:"request_id"`
	Error        string `json:"error"`
	Message      string `json:"message"`
}

// AuthTransport performs the wire-level authorization-code exchange
// and token refresh. Extracted as an interface so the token manager
// can be tested against a fake.
type AuthTransport interface {
	Exchange(ctx context.Context, code string, shopID int64) (*TokenResponse, error)
	Refresh(ctx context.Context, shopID int64, refreshToken string) (*TokenResponse, error)
}

// AuthClient implements AuthTransport against the Shopee partner API.
type AuthClient struct {
	creds      Credentials
	baseURL    string
	signature  *Signature
	httpClient *http.Client
}

// NewAuthClient creates the auth transport. baseURL overrides the
// region host when non-empty (tests point it at a fake server).
func NewAuthClient(creds Credentials, baseURL string) (*AuthClient, error) {
	if baseURL == "" {
		var err error
		baseURL, err = creds.BaseURL()
		if err != nil {
			return nil, err
		}
	}
	return &AuthClient{
		creds:      creds,
		baseURL:    baseURL,
		signature:  NewSignature(creds.PartnerKey),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// AuthorizationURL builds the signed auth_partner URL the merchant is
// redirected to for the one-time grant.
func (a *AuthClient) AuthorizationURL(state string) string {
	ts := time.Now().Unix()
	sign := a.signature.SignPublic(a.creds.PartnerID, pathAuthPartner, ts)

	q := url.Values{}
	q.Set("partner_id", fmt.Sprintf("%d", a.creds.PartnerID))
	q.Set("timestamp", fmt.Sprintf("%d", ts))
	q.Set("sign", sign)
	q.Set("redirect", a.creds.RedirectURI)
	if state != "" {
		q.Set("state", state)
	}
	return a.baseURL + pathAuthPartner + "?" + q.Encode()
}

// Exchange swaps the one-time authorization code for a token pair.
func (a *AuthClient) Exchange(ctx context.Context, code string, shopID int64) (*TokenResponse, error) {
	body := map[string]interface{}{
		"code":       code,
		"shop_id":    shopID,
		"partner_id": a.creds.PartnerID,
	}
	return a.postToken(ctx, pathTokenGet, body)
}

// Refresh mints a new token pair from the refresh token. The caller
// (token manager) serializes refreshes per shop; a duplicate refresh
// invalidates the refresh token on the Shopee side.
func (a *AuthClient) Refresh(ctx context.Context, shopID int64, refreshToken string) (*TokenResponse, error) {
	body := map[string]interface{}{
		"refresh_token": refreshToken,
		"shop_id":       shopID,
		"partner_id":    a.creds.PartnerID,
	}
	return a.postToken(ctx, pathAccessToken, body)
}

func (a *AuthClient) postToken(ctx context.Context, path string, body map[string]interface{}) (*TokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	ts := time.Now().Unix()
	sign := a.signature.SignPublic(a.creds.PartnerID, path, ts)

	q := url.Values{}
	q.Set("partner_id", fmt.Sprintf("%d", a.creds.PartnerID))
	q.Set("timestamp", fmt.Sprintf("%d", ts))
	q.Set("sign", sign)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path+"?"+q.Encode(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "token " + path, Err: err}
	}
	defer resp.Body.Close()

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, &NetworkError{Op: "token " + path, Err: err}
	}

	if tokenResp.Error != "" {
		return nil, &ApiError{Code: tokenResp.Error, Message: tokenResp.Message, RequestID: tokenResp.RequestID}
	}
	if tokenResp.AccessToken == "" {
		return nil, &NetworkError{Op: "token " + path, Err: fmt.Errorf("empty access token in response (status %d)", resp.StatusCode)}
	}
	return &tokenResp, nil
}
