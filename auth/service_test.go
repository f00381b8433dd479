package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func registerStaff(t *testing.T, svc *Service, email, password string) *User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: password,
		FullName: "Alice Tan",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestRegister_DefaultsToStaffRole(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret")

	user := registerStaff(t, svc, "alice@example.com", "supersafe")
	if user.Role != RoleHRStaff {
		t.Fatalf("expected default role %s, got %s", RoleHRStaff, user.Role)
	}
}

func TestRegister_AdminRole(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret")

	user, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "head@example.com",
		Password: "supersafe",
		FullName: "Head of HR",
		Role:     RoleHRAdmin,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != RoleHRAdmin {
		t.Fatalf("expected role %s, got %s", RoleHRAdmin, user.Role)
	}
}

func TestRegister_RejectsUnknownRole(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "x@example.com",
		Password: "supersafe",
		FullName: "X",
		Role:     "superuser",
	})
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "short",
		FullName: "Alice Tan",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "",
		Password: "strongpassword",
		FullName: "",
	}); err == nil {
		t.Fatal("expected validation error for missing fields")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret")

	registerStaff(t, svc, "alice@example.com", "strongpassword")
	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "strongpassword",
		FullName: "Alice Tan",
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLogin_RoundTripsRoleThroughToken(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret")
	user := registerStaff(t, svc, "alice@example.com", "supersafe")

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "supersafe",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login: expected token")
	}
	if resp.User.ID != user.ID {
		t.Fatalf("login: expected user id %q, got %q", user.ID, resp.User.ID)
	}

	subject, role, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if subject != user.ID {
		t.Fatalf("verify token: expected subject %q, got %q", user.ID, subject)
	}
	if role != RoleHRStaff {
		t.Fatalf("verify token: expected role %s, got %s", RoleHRStaff, role)
	}
}

func TestLogin_NormalizesEmail(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret")
	registerStaff(t, svc, "  Alice@Example.COM ", "supersafe")

	if _, err := svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "supersafe",
	}); err != nil {
		t.Fatalf("login with normalized email: %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret")
	registerStaff(t, svc, "alice@example.com", "supersafe")

	cases := []struct {
		name  string
		email string
		pass  string
	}{
		{"unknown email", "nobody@example.com", "supersafe"},
		{"wrong password", "alice@example.com", "notthepassword"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), LoginRequest{Email: tc.email, Password: tc.pass})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestVerifyToken_RejectsForeignSignature(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")
	forger := NewService(repo, "other-secret")

	registerStaff(t, svc, "alice@example.com", "supersafe")
	resp, err := forger.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "supersafe",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, _, err := svc.VerifyToken(resp.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for a foreign signature, got %v", err)
	}
}

func TestVerifyToken_RejectsExpired(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret").
		WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })

	registerStaff(t, svc, "alice@example.com", "supersafe")
	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "supersafe",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, _, err := svc.VerifyToken(resp.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for an expired token, got %v", err)
	}
}

// fakeRepository matches emails exactly; normalization is the service's job.
type fakeRepository struct {
	usersByEmail map[string]User
	usersByID    map[string]User
	nextID       int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		usersByEmail: make(map[string]User),
		usersByID:    make(map[string]User),
		nextID:       1,
	}
}

func (f *fakeRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if _, exists := f.usersByEmail[params.Email]; exists {
		return User{}, ErrDuplicateEmail
	}

	user := User{
		ID:           fmt.Sprintf("user-%d", f.nextID),
		Email:        params.Email,
		FullName:     params.FullName,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	f.nextID++
	f.usersByEmail[user.Email] = user
	f.usersByID[user.ID] = user
	return user, nil
}

func (f *fakeRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	user, ok := f.usersByEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeRepository) GetUserByID(ctx context.Context, userID string) (User, error) {
	user, ok := f.usersByID[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}
