package shopee

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthClient_AuthorizationURL(t *testing.T) {
	creds := testCreds()
	creds.RedirectURI = "https://app.example.com/auth/callback"
	a, err := NewAuthClient(creds, "https://partner.test-stable.shopeemobile.com")
	require.NoError(t, err)

	raw := a.AuthorizationURL("state-123")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, pathAuthPartner, parsed.Path)

	q := parsed.Query()
	assert.Equal(t, "2011285", q.Get("partner_id"))
	assert.Equal(t, creds.RedirectURI, q.Get("redirect"))
	assert.Equal(t, "state-123", q.Get("state"))

	ts, err := strconv.ParseInt(q.Get("timestamp"), 10, 64)
	require.NoError(t, err)
	expected := NewSignature(testPartnerKey).SignPublic(creds.PartnerID, pathAuthPartner, ts)
	assert.Equal(t, expected, q.Get("sign"))
}

func TestAuthClient_ExchangeSendsSignedRequest(t *testing.T) {
	sig := NewSignature(testPartnerKey)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, pathTokenGet, r.URL.Path)

		q := r.URL.Query()
		ts, err := strconv.ParseInt(q.Get("timestamp"), 10, 64)
		require.NoError(t, err)
		require.Equal(t, sig.SignPublic(2011285, pathTokenGet, ts), q.Get("sign"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "auth-code-1", body["code"])
		assert.EqualValues(t, 42, body["shop_id"])

		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpireIn:     14400,
			RequestID:    "req-1",
		})
	}))
	defer server.Close()

	a, err := NewAuthClient(testCreds(), server.URL)
	require.NoError(t, err)

	resp, err := a.Exchange(context.Background(), "auth-code-1", 42)
	require.NoError(t, err)
	assert.Equal(t, "access-1", resp.AccessToken)
	assert.Equal(t, "refresh-1", resp.RefreshToken)
	assert.Equal(t, int64(14400), resp.ExpireIn)
}

func TestAuthClient_RefreshPropagatesRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, pathAccessToken, r.URL.Path)
		json.NewEncoder(w).Encode(TokenResponse{
			Error:     "error_auth",
			Message:   "Invalid refresh_token.",
			RequestID: "req-2",
		})
	}))
	defer server.Close()

	a, err := NewAuthClient(testCreds(), server.URL)
	require.NoError(t, err)

	_, err = a.Refresh(context.Background(), 42, "stale-refresh")
	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "error_auth", apiErr.Code)
	assert.Equal(t, "req-2", apiErr.RequestID)
}

func TestAuthClient_EmptyTokenIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	a, err := NewAuthClient(testCreds(), server.URL)
	require.NoError(t, err)

	_, err = a.Refresh(context.Background(), 42, "refresh-1")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}
