package credential

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

// Claims carried by access tokens.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AccountID parses the numeric subject.
func (c *Claims) AccountID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// JWTSigner signs short-lived RS256 access tokens.
type JWTSigner struct {
	key    *rsa.PrivateKey
	kid    string
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTSigner loads the PEM key at cfg.PrivateKeyFile, or generates an
// ephemeral 2048-bit key when the path is empty.
func NewJWTSigner(cfg Config) (*JWTSigner, error) {
	var (
		k   *rsa.PrivateKey
		err error
	)
	if cfg.PrivateKeyFile != "" {
		pemBytes, rerr := os.ReadFile(cfg.PrivateKeyFile)
		if rerr != nil {
			return nil, fmt.Errorf("read signing key: %w", rerr)
		}
		k, err = jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	} else {
		k, err = rsa.GenerateKey(rand.Reader, 2048)
	}
	if err != nil {
		return nil, err
	}
	return newJWTSigner(k, cfg.Issuer, cfg.AccessTTL), nil
}

func newJWTSigner(k *rsa.PrivateKey, issuer string, ttl time.Duration) *JWTSigner {
	// kid is base64 of the first 8 bytes of SHA256 over the DER public key
	der, _ := x509.MarshalPKIXPublicKey(&k.PublicKey)
	h := sha256.Sum256(der)
	return &JWTSigner{
		key:    k,
		kid:    base64.RawURLEncoding.EncodeToString(h[:8]),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the access-token lifetime.
func (s *JWTSigner) TTL() time.Duration { return s.ttl }

// Sign mints an access token for the account.
func (s *JWTSigner) Sign(accountID int64, username, role string) (string, error) {
	now := s.now()
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        utilities.NewKSUID(),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.kid
	return tok.SignedString(s.key)
}

// Parse verifies signature, issuer and expiry.
func (s *JWTSigner) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return &s.key.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

// JWKS returns a minimal JWKS containing the public key.
func (s *JWTSigner) JWKS() map[string]any {
	pub := s.key.PublicKey
	jwk := map[string]any{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": s.kid,
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
	return map[string]any{"keys": []any{jwk}}
}
