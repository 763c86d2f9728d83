package auth

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func TestJWT_Verify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	clock := clockwork.NewFakeClock()
	v := NewJWT(pub, clock)
	userID := uuid.New()

	token := Sign(Lifetime(userID, clock.Now(), time.Hour), priv)
	got, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != userID {
		t.Errorf("user = %s, want %s", got, userID)
	}
}

func TestJWT_RejectsExpired(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	clock := clockwork.NewFakeClock()
	v := NewJWT(pub, clock)

	token := Sign(Lifetime(uuid.New(), clock.Now(), time.Minute), priv)
	clock.Advance(2 * time.Minute)

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: err = %v, want ErrInvalidToken", err)
	}
}

func TestJWT_RejectsTamperedSignature(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	_, otherPriv, _ := ed25519.GenerateKey(nil)
	clock := clockwork.NewFakeClock()
	v := NewJWT(pub, clock)

	token := Sign(Lifetime(uuid.New(), clock.Now(), time.Hour), otherPriv)
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign signature: err = %v, want ErrInvalidToken", err)
	}

	if _, err := v.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("malformed token: err = %v, want ErrInvalidToken", err)
	}
}

func TestAnonymous_RejectsEverything(t *testing.T) {
	if _, err := (Anonymous{}).Verify("anything"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
