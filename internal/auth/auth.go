package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken covers malformed encoding, bad signature, expired
// tokens, and tokens missing required claims.
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is the claim set carried by every bearer token: the user
// name as subject plus the role held at mint time.
type TokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Password hashing (bcrypt). The cost factor is fixed and not exposed to
// callers.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// JWTManager mints and verifies HS256 bearer tokens. Tokens are
// self-contained and cannot be revoked before expiry.
type JWTManager struct {
	secretKey     string
	tokenDuration time.Duration
}

func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{secretKey, tokenDuration}
}

// Mint issues a token for the given subject and role, expiring after the
// manager's configured duration.
func (m *JWTManager) Mint(subject, role string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "mlops-accidents",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}

// Verify parses and validates a token. Signature, expiry (no leeway), and
// the presence of subject and role claims are all checked.
func (m *JWTManager) Verify(tokenStr string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secretKey), nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
