package keys_test

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/courseloop/lti-tool/internal/db"
	"github.com/courseloop/lti-tool/internal/keys"
)

func TestGenerateKeyPairProducesFreshKIDs(t *testing.T) {
	p := &keys.Provider{Storage: keys.NewInMemoryStorage(), RSAKeyBits: 1024} // small keys for test speed
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		kid, err := p.GenerateKeyPair(ctx)
		if err != nil {
			t.Fatalf("GenerateKeyPair: %v", err)
		}
		if kid == "" {
			t.Fatal("empty kid")
		}
		if seen[kid] {
			t.Fatalf("kid %q reused", kid)
		}
		seen[kid] = true
	}
}

func TestPublicJWKShape(t *testing.T) {
	p := &keys.Provider{Storage: keys.NewInMemoryStorage(), RSAKeyBits: 1024}
	ctx := context.Background()

	kid, err := p.GenerateKeyPair(ctx)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	jwk, err := p.PublicJWK(ctx, kid)
	if err != nil {
		t.Fatalf("PublicJWK: %v", err)
	}
	if jwk["kty"] != "RSA" || jwk["alg"] != "RS256" || jwk["use"] != "sig" {
		t.Errorf("jwk metadata = %v", jwk)
	}
	if jwk["kid"] != kid {
		t.Errorf("kid = %v, want %v", jwk["kid"], kid)
	}
	for _, f := range []string{"n", "e"} {
		s, _ := jwk[f].(string)
		if s == "" {
			t.Errorf("jwk missing %q", f)
		}
	}

	if _, err := p.PublicJWK(ctx, "no-such-kid"); !errors.Is(err, keys.ErrKeyNotFound) {
		t.Errorf("unknown kid: %v, want ErrKeyNotFound", err)
	}
}

func TestSQLStorageRoundTrip(t *testing.T) {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		"file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })

	secret := hex.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	store, err := keys.NewSQLStorage(dbh, secret)
	if err != nil {
		t.Fatalf("NewSQLStorage: %v", err)
	}

	p := &keys.Provider{Storage: store, RSAKeyBits: 1024}
	ctx := context.Background()
	kid, err := p.GenerateKeyPair(ctx)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	rec, err := store.Get(ctx, kid)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.KID != kid || rec.Alg != "RS256" {
		t.Errorf("rec = %+v", rec)
	}
	if rec.RSAPrivate == nil {
		t.Fatal("private key did not survive the round trip")
	}

	// Ciphertext in the table must not contain clear key material.
	var enc string
	if err := dbh.QueryRow(`SELECT private_key_enc FROM tool_keys WHERE kid=$1`, kid).Scan(&enc); err != nil {
		t.Fatalf("select: %v", err)
	}
	if strings.Contains(enc, "BEGIN") {
		t.Error("private_key_enc looks like clear PEM")
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, keys.ErrKeyNotFound) {
		t.Errorf("Get missing: %v, want ErrKeyNotFound", err)
	}
}

func TestNewSQLStorageRejectsBadSecret(t *testing.T) {
	if _, err := keys.NewSQLStorage(nil, "not-hex"); err == nil {
		t.Error("want error for non-hex secret")
	}
	if _, err := keys.NewSQLStorage(nil, "abcd"); err == nil {
		t.Error("want error for short secret")
	}
}
