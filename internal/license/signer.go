package license

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"

	"github.com/rex103240/IronLock-Server/internal/models"
)

var ErrSignerUnavailable = errors.New("license: signer unavailable")
var ErrMissingSigningKey = errors.New("license: missing signing key")
var ErrInvalidSigningKey = errors.New("license: invalid signing key")
var ErrInvalidPublicKey = errors.New("license: invalid public key")
var ErrReadSigningKeyFile = errors.New("license: read signing key file")
var ErrInvalidAttestation = errors.New("license: invalid attestation")

// Signer attests the (key, hardware id, expiry) triple of a successful check.
type Signer interface {
	Sign(key, hardwareID string, expiry time.Time) (string, error)
	// Degraded is true when attestations are issued without signatures.
	Degraded() bool
}

// CanonicalPayload is the exact byte string covered by an attestation.
// Identity fields such as the gym name are deliberately not part of it.
func CanonicalPayload(key, hardwareID string, expiry time.Time) string {
	return strings.Join([]string{key, hardwareID, models.CivilDate(expiry).Format(models.DateLayout)}, "|")
}

// RSASigner produces RSA-PSS / SHA-256 signatures.
type RSASigner struct {
	key *rsa.PrivateKey
}

var _ Signer = (*RSASigner)(nil)

func NewRSASigner(key *rsa.PrivateKey) *RSASigner {
	return &RSASigner{key: key}
}

func (s *RSASigner) Sign(key, hardwareID string, expiry time.Time) (string, error) {
	sig, err := jwtgo.SigningMethodPS256.Sign(CanonicalPayload(key, hardwareID, expiry), s.key)
	if err != nil {
		return "", fmt.Errorf("license: sign attestation: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (s *RSASigner) Degraded() bool { return false }

func (s *RSASigner) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

func (s *RSASigner) PublicKeyPEM() ([]byte, error) {
	return encodePublicKey(&s.key.PublicKey)
}

// NoopSigner is used when no private key is configured.
type NoopSigner struct{}

var _ Signer = NoopSigner{}

func (NoopSigner) Sign(string, string, time.Time) (string, error) {
	return "", ErrSignerUnavailable
}

func (NoopSigner) Degraded() bool { return true }

type KeySource struct {
	File     string
	PEM      string
	Required bool
}

// LoadSigner builds the process signer from a PEM private key (PKCS#1 or
// PKCS#8). Inline PEM wins over File. Without key material it falls back
// to NoopSigner unless the source is marked Required.
func LoadSigner(src KeySource) (Signer, error) {
	raw := src.PEM

	if file := strings.TrimSpace(src.File); strings.TrimSpace(raw) == "" && file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			if os.IsNotExist(err) && !src.Required {
				return NoopSigner{}, nil
			}
			return nil, fmt.Errorf("%w: %v", ErrReadSigningKeyFile, err)
		}
		raw = string(b)
	}

	if strings.TrimSpace(raw) == "" {
		if src.Required {
			return nil, ErrMissingSigningKey
		}
		return NoopSigner{}, nil
	}

	key, err := jwtgo.ParseRSAPrivateKeyFromPEM([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSigningKey, err)
	}
	return NewRSASigner(key), nil
}

// Verifier checks attestations with the public half of the signing key.
// Clients hold one to validate cached results offline.
type Verifier struct {
	key *rsa.PublicKey
}

func NewVerifier(key *rsa.PublicKey) *Verifier {
	return &Verifier{key: key}
}

func ParseVerifier(publicKeyPEM []byte) (*Verifier, error) {
	key, err := jwtgo.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return NewVerifier(key), nil
}

func (v *Verifier) Verify(key, hardwareID string, expiry time.Time, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return fmt.Errorf("%w: decode signature: %v", ErrInvalidAttestation, err)
	}
	if err := jwtgo.SigningMethodPS256.Verify(CanonicalPayload(key, hardwareID, expiry), sig, v.key); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAttestation, err)
	}
	return nil
}

// GenerateKeyPair returns a new PKCS#8 private key and PKIX public key, PEM encoded.
func GenerateKeyPair(bits int) (privatePEM, publicPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("license: generate key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("license: marshal private key: %w", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	publicPEM, err = encodePublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	return privatePEM, publicPEM, nil
}

func encodePublicKey(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("license: marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
