package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func subject(id string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: id}
}

func TestSignAndVerify(t *testing.T) {
	issuer, err := NewIssuer("", "dev", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	token, err := issuer.Sign(Claims{Email: "dev@localhost", RegisteredClaims: subject("local:dev")})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "local:dev" || claims.Email != "dev@localhost" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	issuer, _ := NewIssuer("secret-a", "dev", time.Minute)
	token, err := issuer.Sign(Claims{RegisteredClaims: subject("u1")})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other, _ := NewIssuer("secret-b", "dev", time.Minute)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for wrong secret, got %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token after expiry, got %v", err)
	}
}

func TestNewIssuerRequiresSecretInProduction(t *testing.T) {
	if _, err := NewIssuer("", "production", time.Hour); err == nil {
		t.Fatalf("expected error without secret in production")
	}
}
