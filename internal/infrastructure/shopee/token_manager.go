package shopee

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"archie-core-shopee-layer/internal/domain"
	"archie-core-shopee-layer/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// refreshMargin is the safety margin before expiry: a token set is
// never handed out with less than this much lifetime left.
const refreshMargin = 5 * time.Minute

// TokenManager owns the access/refresh token pair per shop. It
// performs the authorization-code exchange and refreshes before
// expiry. Refreshes are serialized per shop: concurrent callers await
// the same in-flight refresh instead of issuing duplicates, which
// would invalidate the refresh token on the Shopee side.
type TokenManager struct {
	transport AuthTransport
	store     ports.TokenStore
	crypto    ports.EncryptionService
	logger    zerolog.Logger

	group singleflight.Group

	mu    sync.RWMutex
	shops map[int64]*domain.Shop // decrypted, owned exclusively by this manager
}

// NewTokenManager creates a new token manager.
func NewTokenManager(transport AuthTransport, store ports.TokenStore, crypto ports.EncryptionService, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		transport: transport,
		store:     store,
		crypto:    crypto,
		logger:    logger,
		shops:     make(map[int64]*domain.Shop),
	}
}

// Exchange performs the one-time authorization-code grant and persists
// the resulting token set before returning it.
func (tm *TokenManager) Exchange(ctx context.Context, code string, shopID int64, region string) (*domain.Shop, error) {
	resp, err := tm.transport.Exchange(ctx, code, shopID)
	if err != nil {
		tm.logger.Error().Err(err).Int64("shopId", shopID).Msg("Authorization code exchange failed")
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	shop := &domain.Shop{
		ShopID:       shopID,
		Region:       region,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpireIn) * time.Second),
		ConnectedAt:  time.Now(),
	}

	if err := tm.persist(ctx, shop); err != nil {
		return nil, err
	}

	tm.mu.Lock()
	tm.shops[shopID] = shop
	tm.mu.Unlock()

	tm.logger.Info().
		Int64("shopId", shopID).
		Time("expiresAt", shop.ExpiresAt).
		Msg("Shop authorized")

	return copyShop(shop), nil
}

// GetValid returns a token set guaranteed to be valid for at least the
// refresh margin. If the margin is breached, a refresh completes (and
// persists) before the token set is handed out.
func (tm *TokenManager) GetValid(ctx context.Context, shopID int64) (*domain.Shop, error) {
	shop, err := tm.current(ctx, shopID)
	if err != nil {
		return nil, err
	}

	if time.Until(shop.ExpiresAt) > refreshMargin {
		return copyShop(shop), nil
	}

	return tm.Refresh(ctx, shopID)
}

// Refresh mints a new token pair for the shop. Concurrent calls for
// the same shop share a single in-flight refresh. On failure the shop
// is marked disconnected and every waiter receives the same
// AuthenticationError; no automatic retry.
func (tm *TokenManager) Refresh(ctx context.Context, shopID int64) (*domain.Shop, error) {
	return tm.refresh(ctx, shopID, false)
}

// ForceRefresh refreshes even when the current token set is within the
// expiry margin. Used by the client when the remote rejects a token
// that looks valid locally.
func (tm *TokenManager) ForceRefresh(ctx context.Context, shopID int64) (*domain.Shop, error) {
	return tm.refresh(ctx, shopID, true)
}

func (tm *TokenManager) refresh(ctx context.Context, shopID int64, force bool) (*domain.Shop, error) {
	v, err, _ := tm.group.Do(strconv.FormatInt(shopID, 10), func() (interface{}, error) {
		return tm.doRefresh(ctx, shopID, force)
	})
	if err != nil {
		return nil, err
	}
	return copyShop(v.(*domain.Shop)), nil
}

func (tm *TokenManager) doRefresh(ctx context.Context, shopID int64, force bool) (*domain.Shop, error) {
	shop, err := tm.current(ctx, shopID)
	if err != nil {
		return nil, err
	}

	// A previous waiter in this flight group may already have
	// refreshed; don't burn the refresh token twice.
	if !force && time.Until(shop.ExpiresAt) > refreshMargin {
		return shop, nil
	}

	resp, err := tm.transport.Refresh(ctx, shopID, shop.RefreshToken)
	if err != nil {
		tokenRefreshesTotal.WithLabelValues("failure").Inc()
		tm.logger.Error().Err(err).Int64("shopId", shopID).Msg("Token refresh failed, marking shop disconnected")
		if markErr := tm.store.MarkDisconnected(ctx, shopID); markErr != nil {
			tm.logger.Error().Err(markErr).Int64("shopId", shopID).Msg("Failed to mark shop disconnected")
		}
		tm.mu.Lock()
		delete(tm.shops, shopID)
		tm.mu.Unlock()
		return nil, &AuthenticationError{ShopID: shopID, Reason: "refresh failed: " + err.Error(), Disconnected: true}
	}

	refreshed := &domain.Shop{
		ShopID:       shopID,
		Region:       shop.Region,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpireIn) * time.Second),
		ConnectedAt:  shop.ConnectedAt,
	}

	// Persist before any waiter sees the new token set.
	if err := tm.persist(ctx, refreshed); err != nil {
		return nil, err
	}

	tm.mu.Lock()
	tm.shops[shopID] = refreshed
	tm.mu.Unlock()

	tokenRefreshesTotal.WithLabelValues("success").Inc()
	tm.logger.Info().
		Int64("shopId", shopID).
		Time("expiresAt", refreshed.ExpiresAt).
		Msg("Token refreshed")

	return refreshed, nil
}

// current returns the in-memory token set, loading and decrypting from
// the store on first use.
func (tm *TokenManager) current(ctx context.Context, shopID int64) (*domain.Shop, error) {
	tm.mu.RLock()
	shop, ok := tm.shops[shopID]
	tm.mu.RUnlock()
	if ok {
		return shop, nil
	}

	stored, err := tm.store.LoadTokens(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	if stored == nil {
		return nil, &AuthenticationError{ShopID: shopID, Reason: "shop not connected"}
	}
	if stored.Disconnected {
		return nil, &AuthenticationError{ShopID: shopID, Reason: "shop disconnected", Disconnected: true}
	}

	accessToken, err := tm.crypto.Decrypt(stored.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	refreshToken, err := tm.crypto.Decrypt(stored.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	stored.AccessToken = accessToken
	stored.RefreshToken = refreshToken

	tm.mu.Lock()
	if cached, ok := tm.shops[shopID]; ok {
		stored = cached
	} else {
		tm.shops[shopID] = stored
	}
	tm.mu.Unlock()

	return stored, nil
}

// persist encrypts and saves a token set. The in-memory copy keeps the
// plaintext; only ciphertext leaves this package.
func (tm *TokenManager) persist(ctx context.Context, shop *domain.Shop) error {
	encryptedAccess, err := tm.crypto.Encrypt(shop.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encryptedRefresh, err := tm.crypto.Encrypt(shop.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	stored := *shop
	stored.AccessToken = encryptedAccess
	stored.RefreshToken = encryptedRefresh

	if err := tm.store.SaveTokens(ctx, &stored); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// Forget drops the in-memory token set for a shop. Called when the
// shop deauthorizes so a stale token is never reused.
func (tm *TokenManager) Forget(shopID int64) {
	tm.mu.Lock()
	delete(tm.shops, shopID)
	tm.mu.Unlock()
}

func copyShop(s *domain.Shop) *domain.Shop {
	c := *s
	return &c
}
