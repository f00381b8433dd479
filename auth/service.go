package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password;
	// callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals a password below the minimum length.
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
	// ErrInvalidToken signals a token that failed signature, expiry, or claim
	// checks.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrUnknownRole signals a role outside the two HR roles.
	ErrUnknownRole = errors.New("auth: unknown role")
)

const (
	minPasswordLength = 8
	tokenTTL          = 24 * time.Hour
	tokenIssuer       = "hronboard"
)

// staffClaims is the session token payload. The user id rides in the
// registered subject claim; the HR role is the only custom claim.
type staffClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies HR staff credentials.
type Service struct {
	repo      Repository
	jwtSecret []byte
	now       func() time.Time
}

// LoginResult bundles the session token with the authenticated user.
type LoginResult struct {
	Token string
	User  User
}

func NewService(repo Repository, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register creates a staff account. An empty role defaults to hr_staff; only
// the two HR roles are accepted.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.FullName)
	if email == "" || name == "" {
		return nil, fmt.Errorf("auth: email and full_name are required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	role := req.Role
	if role == "" {
		role = RoleHRStaff
	}
	if role != RoleHRAdmin && role != RoleHRStaff {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Email:        email,
		FullName:     name,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login checks the credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: issue token: %w", err)
	}
	return LoginResult{Token: token, User: user}, nil
}

// GetUserByID fetches the account behind a verified token subject.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyToken checks signature, issuer, and expiry, and returns the user id
// and HR role embedded in the token.
func (s *Service) VerifyToken(tokenString string) (string, Role, error) {
	var claims staffClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", "", ErrInvalidToken
	}

	role := Role(claims.Role)
	if role != RoleHRAdmin && role != RoleHRStaff {
		return "", "", fmt.Errorf("%w: role %q", ErrInvalidToken, claims.Role)
	}
	return claims.Subject, role, nil
}

func (s *Service) issueToken(user User) (string, error) {
	now := s.now()
	claims := staffClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
