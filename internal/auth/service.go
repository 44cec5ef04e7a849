package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/devfinder/devfinder/internal/config"
	"github.com/devfinder/devfinder/internal/users"
)

const (
	accessTokenTTL  = 5 * time.Minute
	refreshTokenTTL = 30 * time.Minute
	secretLength    = 32
	refreshLength   = 32
	tokenIssuer     = "devfinder"
)

var (
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrUsersAlreadyExist       = errors.New("users already exist")
	ErrEmailPasswordRequired   = errors.New("email and password are required")
	ErrUnexpectedSigningMethod = errors.New("unexpected signing method")
	ErrInvalidToken            = errors.New("invalid token")
)

// Claims are the JWT claims carried by dashboard access tokens.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
	Role  string `json:"role"`
}

// Account identifies the logged-in user in responses.
type Account struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginRequest carries dashboard login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the token pair handed out after login or bootstrap.
type LoginResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         Account `json:"user"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// FirstUserRequest bootstraps the initial admin account.
type FirstUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthStatusResponse tells the UI whether login or bootstrap applies.
type AuthStatusResponse struct {
	UsersExist bool `json:"users_exist"`
}

// session is the server-side state behind one refresh token.
type session struct {
	email   string
	expires time.Time
}

// Service issues and validates dashboard tokens. The signing secret
// lives only in memory, so every restart invalidates all sessions.
type Service struct {
	cfg    *config.Config
	secret []byte

	mu       sync.Mutex
	sessions map[string]session
}

// NewService creates the auth service with a fresh random signing secret.
func NewService(cfg *config.Config) (*Service, error) {
	secret := make([]byte, secretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate signing secret: %w", err)
	}

	return &Service{
		cfg:      cfg,
		secret:   secret,
		sessions: make(map[string]session),
	}, nil
}

// HasUsers reports whether any dashboard user is configured.
func (s *Service) HasUsers() bool {
	return s.cfg.HasUsers()
}

// Login checks credentials against the configured users and issues tokens.
func (s *Service) Login(req *LoginRequest) (*LoginResponse, error) {
	user, ok := s.cfg.FindUser(req.Email)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	match, err := users.VerifyPassword(req.Password, user.Password)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user.Email, user.Role)
}

// CreateFirstUser bootstraps the initial account. The bootstrap user
// always gets the admin role and is persisted to the config file.
func (s *Service) CreateFirstUser(req *FirstUserRequest) (*LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrEmailPasswordRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.HasUsers() {
		return nil, ErrUsersAlreadyExist
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.cfg.AppendUser(config.UserConfig{Email: req.Email, Password: hash, Role: "admin"})

	if err := s.cfg.Save(); err != nil {
		return nil, fmt.Errorf("save config: %w", err)
	}

	return s.issueTokensLocked(req.Email, "admin")
}

// ValidateToken parses and verifies an access token.
func (s *Service) ValidateToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedSigningMethod, t.Header["alg"])
		}

		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Refresh rotates a refresh token. Tokens are single use: a consumed or
// expired token always fails, even when the rest of the exchange does.
func (s *Service) Refresh(req *RefreshRequest) (*RefreshResponse, error) {
	s.mu.Lock()
	sess, ok := s.sessions[req.RefreshToken]
	if ok {
		delete(s.sessions, req.RefreshToken)
	}
	s.mu.Unlock()

	if !ok || time.Now().After(sess.expires) {
		return nil, ErrInvalidToken
	}

	user, found := s.cfg.FindUser(sess.email)
	if !found {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issueTokens(user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &RefreshResponse{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

// GetAuthStatus reports whether any users exist yet.
func (s *Service) GetAuthStatus() (*AuthStatusResponse, error) {
	return &AuthStatusResponse{UsersExist: s.cfg.HasUsers()}, nil
}

func (s *Service) issueTokens(email, role string) (*LoginResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.issueTokensLocked(email, role)
}

// issueTokensLocked builds the access/refresh pair. Callers hold s.mu.
func (s *Service) issueTokensLocked(email, role string) (*LoginResponse, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	raw := make([]byte, refreshLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	refresh := base64.URLEncoding.EncodeToString(raw)

	// Expired sessions are pruned lazily here instead of by a janitor
	// goroutine; the map only grows while tokens are being minted anyway.
	for token, sess := range s.sessions {
		if now.After(sess.expires) {
			delete(s.sessions, token)
		}
	}

	s.sessions[refresh] = session{email: email, expires: now.Add(refreshTokenTTL)}

	return &LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         Account{Email: email, Role: role},
	}, nil
}
