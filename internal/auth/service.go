package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/comptoir/comptoir/internal/identity"
	"github.com/comptoir/comptoir/internal/platform/httpx"
)

// ErrInvalidCredentials indicates login failure.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)

// Service verifies credentials and issues tokens.
type Service struct {
	identities identity.Repository
	tokens     *TokenIssuer
}

// NewService builds the auth Service.
func NewService(identities identity.Repository, tokens *TokenIssuer) *Service {
	return &Service{identities: identities, tokens: tokens}
}

// LoginResult carries the signed token and the authenticated principal.
type LoginResult struct {
	Token    string    `json:"token"`
	Role     Role      `json:"role"`
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	IssuedAt time.Time `json:"issued_at"`
}

// LoginAdmin authenticates an admin by email and password.
func (s *Service) LoginAdmin(ctx context.Context, email, password string) (LoginResult, error) {
	admin, err := s.identities.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("auth: lookup admin: %w", err)
	}
	return s.login(Principal{ID: admin.ID, Role: RoleAdmin, Username: admin.Username}, admin.PasswordHash, password)
}

// LoginClient authenticates a client by email and password.
func (s *Service) LoginClient(ctx context.Context, email, password string) (LoginResult, error) {
	client, err := s.identities.GetClientByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("auth: lookup client: %w", err)
	}
	return s.login(Principal{ID: client.ID, Role: RoleClient, Username: client.Username}, client.PasswordHash, password)
}

func (s *Service) login(p Principal, hash, password string) (LoginResult, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := time.Now()
	token, err := s.tokens.Issue(p, now)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return LoginResult{Token: token, Role: p.Role, UserID: p.ID, Username: p.Username, IssuedAt: now}, nil
}
