package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotAdmin           = errors.New("admin role required")
)

// Session is an issued admin token.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service gates write operations behind a single shared admin password.
// Tokens are stateless JWTs; logout revokes a token id until it expires.
type Service struct {
	secret       string
	passwordHash string
	ttl          time.Duration
	now          func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewService accepts either a bcrypt hash or a plain password. A plain
// password is hashed once at startup.
func NewService(secret, passwordHash, password string, ttl time.Duration) (*Service, error) {
	if strings.TrimSpace(passwordHash) == "" {
		if strings.TrimSpace(password) == "" {
			return nil, fmt.Errorf("admin password is not configured")
		}
		hashed, err := HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		passwordHash = hashed
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{
		secret:       secret,
		passwordHash: passwordHash,
		ttl:          ttl,
		now:          time.Now,
		revoked:      make(map[string]time.Time),
	}, nil
}

func (s *Service) Login(_ context.Context, password string) (Session, error) {
	if password == "" || CheckPassword(s.passwordHash, password) != nil {
		return Session{}, ErrInvalidCredentials
	}
	issuedAt := s.now()
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:      uuid.NewString(),
			Subject: RoleAdmin,
		},
	}
	token, err := GenerateToken(s.secret, claims, issuedAt, s.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: issuedAt.Add(s.ttl).UTC()}, nil
}

// Verify parses the token and checks it carries the admin role and has not
// been revoked.
func (s *Service) Verify(token string) (*Claims, error) {
	claims, err := ParseToken(s.secret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != RoleAdmin {
		return nil, ErrNotAdmin
	}
	if s.isRevoked(claims.ID) {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	return claims, nil
}

func (s *Service) Logout(_ context.Context, claims *Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	expires := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, until := range s.revoked {
		if now.After(until) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = expires
}

func (s *Service) isRevoked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}
