package registration

import (
	"context"
	"errors"
	"time"
)

// PendingRegistration is the ephemeral, single-use phase-one artifact. It is
// keyed by the platform's OpenID configuration endpoint and carries the bearer
// token (possibly empty) for the dynamic registration call.
type PendingRegistration struct {
	ConfigurationEndpoint string `json:"configuration_endpoint"`
	RegistrationToken     string `json:"registration_token"`
}

// AuthConfig describes how the tool verifies messages from a platform.
type AuthConfig struct {
	Method string `json:"method"` // "JWK_SET"
	Key    string `json:"key"`    // platform JWKS URL
}

// PlatformRecord is the durable end product of a completed registration.
// At most one record exists per (PlatformURL, ClientID); records are never
// mutated by this subsystem.
type PlatformRecord struct {
	PlatformURL string `json:"url"` // platform issuer
	ClientID    string `json:"clientId"`

	Name     string `json:"name"`     // platform product_family_code
	ToolName string `json:"toolName"` // operator-supplied label

	AuthenticationEndpoint string     `json:"authenticationEndpoint"`
	AccessTokenEndpoint    string     `json:"accesstokenEndpoint"`
	AuthConfig             AuthConfig `json:"authConfig"`

	KID string `json:"kid"`

	CreatedAt time.Time `json:"createdAt"`
}

var (
	// ErrPendingNotFound is returned by PendingStore.Consume when no entry
	// exists for the endpoint.
	ErrPendingNotFound = errors.New("registration: pending entry not found")
	// ErrPlatformNotFound is returned by PlatformStore.Get.
	ErrPlatformNotFound = errors.New("registration: platform not found")
)

// PendingStore is the single-use map from configuration endpoint to the
// pending registration. Set overwrites any prior entry for the same endpoint.
type PendingStore interface {
	Set(ctx context.Context, reg PendingRegistration) error
	// Consume returns the entry for endpoint and deletes it in the same
	// operation, so a concurrent or retried completion cannot reuse the
	// token. Returns ErrPendingNotFound when absent.
	Consume(ctx context.Context, endpoint string) (PendingRegistration, error)
}

// PlatformStore is the durable map keyed by (platform URL, client_id).
type PlatformStore interface {
	Exists(ctx context.Context, platformURL, clientID string) (bool, error)
	// Put inserts the record, returning ErrDuplicate when a record for the
	// same (platform URL, client_id) already exists. Existing records are
	// never overwritten.
	Put(ctx context.Context, rec PlatformRecord) error
	Get(ctx context.Context, platformURL, clientID string) (PlatformRecord, error)
	List(ctx context.Context, offset, limit int) ([]PlatformRecord, error)
}

// KeyProvider produces a fresh signing key pair per call and returns its kid.
type KeyProvider interface {
	GenerateKeyPair(ctx context.Context) (string, error)
}
