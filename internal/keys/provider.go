package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"
)

/*
Signing key provider for the Courseloop LTI Tool.

Every completed platform registration gets its own RSA key pair. The kid
returned by GenerateKeyPair is recorded on the PlatformRecord and identifies
the key the tool will later publish in its JWKS and use for private_key_jwt
client assertions against that platform.

Storage is an interface so the provider can run against the in-memory store
(dev/tests) or the encrypted SQL store.
*/

var ErrKeyNotFound = errors.New("keys: key not found")

// KeyRecord holds one tool signing key.
type KeyRecord struct {
	KID        string
	Alg        string // "RS256"
	CreatedAt  time.Time
	RSAPrivate *rsa.PrivateKey
}

// Public returns a public-only JWK view of the key (for JWKS building).
func (k KeyRecord) Public() map[string]any {
	if k.RSAPrivate == nil {
		return nil
	}
	return RSAPublicJWK(&k.RSAPrivate.PublicKey, k.KID, k.Alg)
}

// Storage persists tool keys. Provide a durable implementation for prod.
type Storage interface {
	// Save inserts a key by KID. KIDs are never reused, so a duplicate
	// KID is an error.
	Save(ctx context.Context, rec KeyRecord) error
	// Get returns a key by KID, or ErrKeyNotFound.
	Get(ctx context.Context, kid string) (KeyRecord, error)
}

// Provider generates and looks up tool signing keys.
type Provider struct {
	Storage Storage

	RSAKeyBits int // default 2048

	// Clock (for tests)
	Now func() time.Time
}

// GenerateKeyPair creates a fresh RSA key pair, persists it, and returns its
// kid. Each call yields a new, unused kid.
func (p *Provider) GenerateKeyPair(ctx context.Context) (string, error) {
	if p.Storage == nil {
		return "", errors.New("keys: storage not configured")
	}
	priv, err := rsa.GenerateKey(rand.Reader, p.rsaBits())
	if err != nil {
		return "", fmt.Errorf("rsa generate: %w", err)
	}
	rec := KeyRecord{
		KID:        makeKID("rsa", &priv.PublicKey),
		Alg:        "RS256",
		CreatedAt:  p.now(),
		RSAPrivate: priv,
	}
	if err := p.Storage.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("keys: save: %w", err)
	}
	return rec.KID, nil
}

// PublicJWK returns the public JWK for a previously generated key.
func (p *Provider) PublicJWK(ctx context.Context, kid string) (map[string]any, error) {
	rec, err := p.Storage.Get(ctx, kid)
	if err != nil {
		return nil, err
	}
	pub := rec.Public()
	if pub == nil {
		return nil, fmt.Errorf("keys: %s has no public material", kid)
	}
	return pub, nil
}

func (p *Provider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func (p *Provider) rsaBits() int {
	if p.RSAKeyBits <= 0 {
		return 2048
	}
	return p.RSAKeyBits
}

// makeKID creates a deterministic kid from the public key material plus entropy.
func makeKID(prefix string, pub *rsa.PublicKey) string {
	h := sha256.New()
	if pub != nil {
		h.Write(pub.N.Bytes())
		h.Write([]byte{byte(pub.E >> 24), byte(pub.E >> 16), byte(pub.E >> 8), byte(pub.E)})
	}
	r := make([]byte, 4)
	_, _ = rand.Read(r)
	sum := h.Sum(nil)
	return fmt.Sprintf("%s-%s-%s", prefix, hex.EncodeToString(sum[:6]), hex.EncodeToString(r))
}

/* ----------------------------- JWK building ------------------------------- */

// RSAPublicJWK builds a minimal RSA JWK map (n,e) for the given key.
// Only PUBLIC parameters per RFC 7517; typical metadata is included:
//   - "use": "sig"
//   - "key_ops": ["verify"]
func RSAPublicJWK(pub *rsa.PublicKey, kid, alg string) map[string]any {
	if pub == nil || pub.N == nil || pub.E == 0 {
		return nil
	}
	return map[string]any{
		"kty":     "RSA",
		"kid":     kid,
		"alg":     alg,
		"use":     "sig",
		"key_ops": []string{"verify"},
		"n":       bigIntToB64(pub.N),
		"e":       intToB64(pub.E),
	}
}

// b64url encodes bytes using base64url without padding.
func b64url(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func bigIntToB64(n *big.Int) string {
	if n == nil {
		return ""
	}
	return b64url(n.FillBytes(make([]byte, (n.BitLen()+7)/8)))
}

func intToB64(e int) string {
	return b64url(big.NewInt(int64(e)).FillBytes(make([]byte, intByteLen(e))))
}

func intByteLen(v int) int {
	switch {
	case v <= 0xff:
		return 1
	case v <= 0xffff:
		return 2
	case v <= 0xffffff:
		return 3
	default:
		return 4
	}
}
