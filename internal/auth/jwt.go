package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// defaultTokenExpiry is how long an issued access token remains valid
	// when the directory's configuration leaves token_expiry unset.
	defaultTokenExpiry = 24 * time.Hour

	// rsaKeyBits is the RSA key size used for JWT signing.
	rsaKeyBits = 2048

	// supportedAlgorithm is the only JWT signing algorithm this directory
	// implements. The config schema also accepts an HMAC secret_key for
	// forward compatibility, but that path is not wired up.
	supportedAlgorithm = "RS256"
)

// validateAlgorithm rejects any configured algorithm other than RS256. An
// empty string is treated as "unspecified" and defaults to RS256, matching
// config.defaults().
func validateAlgorithm(algorithm string) error {
	if algorithm == "" || strings.EqualFold(algorithm, supportedAlgorithm) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
}

// Claims holds the claims embedded in every access token: just enough to
// identify the principal and bound its lifetime.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTManager handles RS256 signing and verification of access tokens.
// It holds the RSA key pair in memory after initialization.
type JWTManager struct {
	privateKey  *rsa.PrivateKey
	publicKey   *rsa.PublicKey
	issuer      string
	tokenExpiry time.Duration
}

// NewJWTManagerFromFiles loads an RSA key pair from the PEM files at
// privateKeyPath and publicKeyPath. privateKeyPath must point to a
// PKCS#8 or PKCS#1 PEM-encoded private key. algorithm must be empty or
// "RS256"; tokenExpiry of zero falls back to defaultTokenExpiry.
func NewJWTManagerFromFiles(privateKeyPath, publicKeyPath, issuer, algorithm string, tokenExpiry time.Duration) (*JWTManager, error) {
	if err := validateAlgorithm(algorithm); err != nil {
		return nil, err
	}

	privBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("auth: reading private key file: %w", err)
	}

	pubBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("auth: reading public key file: %w", err)
	}

	return newJWTManagerFromPEM(privBytes, pubBytes, issuer, tokenExpiry)
}

// NewJWTManagerGenerated creates a JWTManager with a freshly generated RSA
// key pair, issuing tokens valid for defaultTokenExpiry. The keys are
// ephemeral: all existing tokens are invalidated on restart. Suitable for
// development when no key-pair files are configured.
func NewJWTManagerGenerated(issuer string) (*JWTManager, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("auth: generating RSA key pair: %w", err)
	}

	return &JWTManager{
		privateKey:  privateKey,
		publicKey:   &privateKey.PublicKey,
		issuer:      issuer,
		tokenExpiry: defaultTokenExpiry,
	}, nil
}

// newJWTManagerFromPEM parses PEM-encoded RSA key bytes and returns a JWTManager.
func newJWTManagerFromPEM(privatePEM, publicPEM []byte, issuer string, tokenExpiry time.Duration) (*JWTManager, error) {
	if tokenExpiry <= 0 {
		tokenExpiry = defaultTokenExpiry
	}

	privBlock, _ := pem.Decode(privatePEM)
	if privBlock == nil {
		return nil, errors.New("auth: failed to decode private key PEM block")
	}

	// Support both PKCS#1 (RSA PRIVATE KEY) and PKCS#8 (PRIVATE KEY) formats.
	var privateKey *rsa.PrivateKey
	switch privBlock.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(privBlock.Bytes)
		if err != nil {
			return nil, fmt.Errorf("auth: parsing PKCS#1 private key: %w", err)
		}
		privateKey = key
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(privBlock.Bytes)
		if err != nil {
			return nil, fmt.Errorf("auth: parsing PKCS#8 private key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("auth: PKCS#8 key is not an RSA key")
		}
		privateKey = rsaKey
	default:
		return nil, fmt.Errorf("auth: unsupported private key PEM type: %s", privBlock.Type)
	}

	pubBlock, _ := pem.Decode(publicPEM)
	if pubBlock == nil {
		return nil, errors.New("auth: failed to decode public key PEM block")
	}

	pubInterface, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parsing public key: %w", err)
	}

	publicKey, ok := pubInterface.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("auth: public key is not an RSA key")
	}

	return &JWTManager{
		privateKey:  privateKey,
		publicKey:   publicKey,
		issuer:      issuer,
		tokenExpiry: tokenExpiry,
	}, nil
}

// GenerateToken issues a signed RS256 JWT for userID, valid for the
// manager's configured token expiry.
func (m *JWTManager) GenerateToken(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	signed, err := token.SignedString(m.privateKey)
	if err != nil {
		return "", fmt.Errorf("auth: signing access token: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and verifies a JWT string, rejecting algorithm
// confusion and expired tokens.
//
// Callers should use errors.Is(err, auth.ErrTokenExpired) to distinguish
// expired tokens from tampered/malformed ones.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", t.Header["alg"])
			}
			return m.publicKey, nil
		},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// PublicKeyPEM returns the public key in PEM-encoded PKIX format.
func (m *JWTManager) PublicKeyPEM() ([]byte, error) {
	pubBytes, err := x509.MarshalPKIXPublicKey(m.publicKey)
	if err != nil {
		return nil, fmt.Errorf("auth: marshaling public key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubBytes,
	}), nil
}
