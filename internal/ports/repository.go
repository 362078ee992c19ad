package ports

import (
	"context"

	"archie-core-shopee-layer/internal/domain"
)

// WebhookLogRepository defines the interface for persisting verified
// push events before they are dispatched.
type WebhookLogRepository interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}

// EncryptionService defines the interface for encrypting tokens at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
