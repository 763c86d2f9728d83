// Package auth maps bearer credentials to user ids. Token issuance belongs
// to the external identity provider; this package only verifies.
package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves a bearer token to the authenticated user. Implementations
// are consulted at controller join time only; viewers are anonymous.
type Verifier interface {
	Verify(token string) (uuid.UUID, error)
}

// Anonymous rejects every token. Used when no identity provider is
// configured; all rooms are then ownerless.
type Anonymous struct{}

func (Anonymous) Verify(string) (uuid.UUID, error) {
	return uuid.Nil, ErrInvalidToken
}

// Claims is the JWT payload issued by the identity provider.
type Claims struct {
	UserID    string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

var jwtHeaderB64 = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"EdDSA","typ":"JWT"}`))

// JWT verifies Ed25519-signed tokens against a fixed public key.
type JWT struct {
	publicKey ed25519.PublicKey
	clock     clockwork.Clock
}

func NewJWT(publicKey ed25519.PublicKey, clock clockwork.Clock) *JWT {
	return &JWT{publicKey: publicKey, clock: clock}
}

var _ Verifier = (*JWT)(nil)

func (j *JWT) Verify(token string) (uuid.UUID, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return uuid.Nil, fmt.Errorf("%w: malformed", ErrInvalidToken)
	}
	if parts[0] != jwtHeaderB64 {
		return uuid.Nil, fmt.Errorf("%w: unsupported algorithm", ErrInvalidToken)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad signature encoding", ErrInvalidToken)
	}
	signingInput := parts[0] + "." + parts[1]
	if len(j.publicKey) != ed25519.PublicKeySize ||
		!ed25519.Verify(j.publicKey, []byte(signingInput), sig) {
		return uuid.Nil, fmt.Errorf("%w: bad signature", ErrInvalidToken)
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad claims encoding", ErrInvalidToken)
	}
	var claims Claims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad claims JSON", ErrInvalidToken)
	}
	if claims.ExpiresAt > 0 && j.clock.Now().Unix() > claims.ExpiresAt {
		return uuid.Nil, fmt.Errorf("%w: expired", ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return userID, nil
}

// Sign creates a token for tests and local tooling.
func Sign(claims Claims, privateKey ed25519.PrivateKey) string {
	claimsJSON, _ := json.Marshal(claims)
	payloadB64 := base64.RawURLEncoding.EncodeToString(claimsJSON)
	signingInput := jwtHeaderB64 + "." + payloadB64
	sig := ed25519.Sign(privateKey, []byte(signingInput))
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// Lifetime is a convenience for building claims that expire.
func Lifetime(userID uuid.UUID, now time.Time, ttl time.Duration) Claims {
	return Claims{
		UserID:    userID.String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}
