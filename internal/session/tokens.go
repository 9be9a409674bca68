package session

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
)

// Claims carried by access and rotation tokens.
type Claims struct {
	Matricule         string      `json:"matricule"`
	Role              access.Role `json:"role"`
	Province          string      `json:"province"`
	SessionID         string      `json:"sid,omitempty"`
	FirstLoginPending bool        `json:"flp,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() access.Identity {
	return access.Identity{AccountID: c.Subject, Matricule: c.Matricule, Role: c.Role, Province: c.Province}
}

// Issuer signs and verifies RS256 tokens.
type Issuer struct {
	key    *rsa.PrivateKey
	kid    string
	issuer string
}

// NewIssuer loads a PEM RSA key from keyFile, or generates a fresh key when
// keyFile is empty. Generated keys do not survive restarts.
func NewIssuer(issuer, keyFile string) (*Issuer, error) {
	var (
		k   *rsa.PrivateKey
		err error
	)
	if keyFile != "" {
		var pem []byte
		pem, err = os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read signing key: %w", err)
		}
		k, err = jwt.ParseRSAPrivateKeyFromPEM(pem)
	} else {
		k, err = rsa.GenerateKey(rand.Reader, 2048)
	}
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	h := sha256.Sum256(pub)
	return &Issuer{key: k, kid: base64.RawURLEncoding.EncodeToString(h[:8]), issuer: issuer}, nil
}

// Sign fills the registered claims and returns the compact token.
func (i *Issuer) Sign(c Claims, now time.Time, ttl time.Duration) (string, error) {
	c.Issuer = i.issuer
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	tok.Header["kid"] = i.kid
	s, err := tok.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Parse verifies token and returns its claims. Any failure is an
// authentication error.
func (i *Issuer) Parse(token string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return &i.key.PublicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithIssuer(i.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrAuthentication, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("token without subject: %w", apperr.ErrAuthentication)
	}
	return &c, nil
}

// JWKS returns a minimal JWKS containing the public key.
func (i *Issuer) JWKS() map[string]any {
	pub := i.key.PublicKey
	jwk := map[string]any{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": i.kid,
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
	return map[string]any{"keys": []any{jwk}}
}

// newRefreshToken returns an opaque token and the hash stored for it.
func newRefreshToken() (string, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	t := base64.RawURLEncoding.EncodeToString(b)
	return t, hashToken(t), nil
}

func hashToken(t string) string {
	h := sha256.Sum256([]byte(t))
	return hex.EncodeToString(h[:])
}
