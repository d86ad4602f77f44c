package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	tokenStr, err := m.Mint("alice", "admin")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	claims, err := m.Verify(tokenStr)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("Expected subject alice, got %s", claims.Subject)
	}
	if claims.Role != "admin" {
		t.Errorf("Expected role admin, got %s", claims.Role)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)

	tokenStr, err := m.Mint("alice", "admin")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if _, err := m.Verify(tokenStr); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	other := NewJWTManager("different", time.Hour)

	tokenStr, err := m.Mint("alice", "admin")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if _, err := other.Verify(tokenStr); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for wrong key, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	if _, err := m.Verify("not-a-token"); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestVerifyMissingClaims(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	// Token with exp but no subject or role.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tokenStr, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := m.Verify(tokenStr); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for missing claims, got %v", err)
	}
}

func TestVerifyMissingExpiry(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Role: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "bob",
		},
	})
	tokenStr, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := m.Verify(tokenStr); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for missing exp, got %v", err)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !CheckPasswordHash("s3cret", hash) {
		t.Error("Expected matching password to verify")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("Expected wrong password to fail")
	}
}
