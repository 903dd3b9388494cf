package services

import (
	"context"
	"io"
	"time"

	"github.com/bakano/consultancy-backend/pkg/pagoplux"
	"github.com/bakano/consultancy-backend/pkg/storybrand"
)

// Mailer sends the transactional emails. Implemented by *email.Mailer.
type Mailer interface {
	SendOnboarding(ctx context.Context, to, name, clientID, businessID string) error
	SendPaymentConfirmation(ctx context.Context, to, name, businessName string) error
	SendPolicy(ctx context.Context, to, name, businessName string) error
	SendManagerInvite(ctx context.Context, to, managerName, businessName, clientID, businessID string) error
	SendUploadNotification(ctx context.Context, businessName, businessID string, fileURLs []string) error
	SendUploadReminder(ctx context.Context, to []string, businessName, clientID, businessID string) error
	SendDataDeletion(ctx context.Context, to, name string) error
	SendBusinessDeleted(ctx context.Context, to, name, businessName string) error
}

// FileStorage keeps the intake documents. Implemented by *storage.S3Storage.
type FileStorage interface {
	EnsureFolder(ctx context.Context, folder string) error
	Upload(ctx context.Context, folder, originalName, contentType string, body io.Reader) (string, error)
	DeleteFolder(ctx context.Context, folder string) error
}

// PaymentLinkCreator generates hosted payment links. Implemented by *pagoplux.Client.
type PaymentLinkCreator interface {
	CreatePaymentLink(ctx context.Context, req pagoplux.LinkRequest) (string, error)
}

// StoryBrandAPI manages accounts on the StoryBrand platform. Implemented by *storybrand.Client.
type StoryBrandAPI interface {
	CreateAccount(ctx context.Context, req storybrand.CreateAccountRequest) (map[string]interface{}, error)
	ChangePassword(ctx context.Context, externalUserID, newPassword string) (map[string]interface{}, error)
	DeleteAccount(ctx context.Context, externalUserID string) error
}

// Cache stores JSON documents with a TTL. Implemented by *cache.RedisCache and cache.NoopCache.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}
