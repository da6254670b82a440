package devserver

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/songzhibin97/adminconsole/pkg/console"
)

// PasswordHasher handles password hashing and verification
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a new password hasher. A cost of 0 selects
// bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// HashPassword hashes a password using bcrypt
func (ph *PasswordHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), ph.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against its hash
func (ph *PasswordHasher) VerifyPassword(password, hash string) error {
	if password == "" || hash == "" {
		return fmt.Errorf("password and hash are required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("password verification failed: %w", err)
	}
	return nil
}

// Claims are the JWT claims of a backend session
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	// Generation is bumped by TokenIssuer.Revoke to invalidate every
	// token issued before.
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

// TokenIssuer handles JWT token generation and validation
type TokenIssuer struct {
	secret    []byte
	expiresIn time.Duration
	issuer    string

	mu         sync.RWMutex
	generation int
}

// NewTokenIssuer creates a new HS256 token issuer
func NewTokenIssuer(secret string, expiresIn time.Duration, issuer string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret cannot be empty")
	}
	if expiresIn == 0 {
		expiresIn = 24 * time.Hour
	}
	if issuer == "" {
		issuer = "console-devserver"
	}

	return &TokenIssuer{
		secret:    []byte(secret),
		expiresIn: expiresIn,
		issuer:    issuer,
	}, nil
}

// Issue signs a token for user with the default lifetime.
func (ti *TokenIssuer) Issue(user console.User) (string, error) {
	return ti.IssueFor(user, ti.expiresIn)
}

// IssueFor signs a token for user that expires after ttl. A negative ttl
// yields an already expired token.
func (ti *TokenIssuer) IssueFor(user console.User, ttl time.Duration) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}

	ti.mu.RLock()
	generation := ti.generation
	ti.mu.RUnlock()

	now := time.Now()
	claims := &Claims{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       string(user.Role),
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate validates a token and returns its claims
func (ti *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(ti.issuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	ti.mu.RLock()
	generation := ti.generation
	ti.mu.RUnlock()
	if claims.Generation != generation {
		return nil, fmt.Errorf("token revoked")
	}

	return claims, nil
}

// Revoke invalidates every token issued so far.
func (ti *TokenIssuer) Revoke() {
	ti.mu.Lock()
	ti.generation++
	ti.mu.Unlock()
}
