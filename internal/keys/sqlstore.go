package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// SQLStorage persists tool keys in the tool_keys table. Private key material
// is never stored in the clear: PKCS#8 bytes are sealed with
// XChaCha20-Poly1305 under a deployment-wide secret.
type SQLStorage struct {
	DB     *sql.DB
	secret []byte // 32 bytes
}

// NewSQLStorage builds a SQLStorage from a hex-encoded 32-byte secret
// (KEY_ENC_SECRET).
func NewSQLStorage(db *sql.DB, hexSecret string) (*SQLStorage, error) {
	sec, err := hex.DecodeString(hexSecret)
	if err != nil {
		return nil, fmt.Errorf("keystore: decode secret: %w", err)
	}
	if len(sec) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("keystore: secret must be %d bytes, got %d", chacha20poly1305.KeySize, len(sec))
	}
	return &SQLStorage{DB: db, secret: sec}, nil
}

func (s *SQLStorage) Save(ctx context.Context, rec KeyRecord) error {
	if rec.RSAPrivate == nil {
		return errors.New("keystore: nil private key")
	}
	pub := rec.Public()
	pubJSON, err := json.Marshal(pub)
	if err != nil {
		return err
	}
	privEnc, err := s.seal(rec.RSAPrivate)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO tool_keys (kid, alg, public_jwk, private_key_enc, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		rec.KID, rec.Alg, string(pubJSON), privEnc, rec.CreatedAt.Unix())
	return err
}

func (s *SQLStorage) Get(ctx context.Context, kid string) (KeyRecord, error) {
	var rec KeyRecord
	var privEnc string
	var createdAt int64
	err := s.DB.QueryRowContext(ctx, `
		SELECT kid, alg, private_key_enc, created_at FROM tool_keys WHERE kid=$1`, kid).
		Scan(&rec.KID, &rec.Alg, &privEnc, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return KeyRecord{}, ErrKeyNotFound
	}
	if err != nil {
		return KeyRecord{}, err
	}
	priv, err := s.open(privEnc)
	if err != nil {
		return KeyRecord{}, err
	}
	rec.RSAPrivate = priv
	rec.CreatedAt = unixUTC(createdAt)
	return rec, nil
}

func (s *SQLStorage) seal(priv any) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("keystore: marshal pkcs8: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.secret)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, der, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *SQLStorage) open(enc string) (*rsa.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("keystore: decode: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.secret)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize() {
		return nil, errors.New("keystore: ciphertext too short")
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	der, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("keystore: unseal: %w", err)
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("keystore: parse pkcs8: %w", err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("keystore: not an RSA key")
	}
	return priv, nil
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
