package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"
)

type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	cp := *user
	cp.ID = r.nextID
	cp.CreatedAt = time.Now()
	r.nextID++
	r.users[user.Username] = &cp
	out := cp
	return &out, nil
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func newAuthService(repo repository.UserRepository) *AuthService {
	return NewAuthService(repo, "test-secret", time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	repo := newMemUserRepo()
	auth := newAuthService(repo)

	user, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "gate-op", Password: "s3cret99"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != "operator" {
		t.Errorf("default role = %q, want operator", user.Role)
	}
	if user.Password != "" {
		t.Error("Register must not return the password hash")
	}

	resp, err := auth.Login(ctx, domain.LoginUserDTO{Username: "gate-op", Password: "s3cret99"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("Login returned empty token")
	}
	if resp.Username != "gate-op" || resp.Role != "operator" {
		t.Errorf("unexpected auth response: %+v", resp)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	auth := newAuthService(newMemUserRepo())

	if _, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "dup", Password: "password1"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "dup", Password: "password2"})
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("second Register err = %v, want ErrUserAlreadyExists", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	auth := newAuthService(newMemUserRepo())

	if _, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "gate-op", Password: "s3cret99"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := auth.Login(ctx, domain.LoginUserDTO{Username: "gate-op", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := auth.Login(ctx, domain.LoginUserDTO{Username: "nobody", Password: "s3cret99"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestValidateTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	auth := newAuthService(newMemUserRepo())

	if _, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "gate-op", Password: "s3cret99"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	resp, err := auth.Login(ctx, domain.LoginUserDTO{Username: "gate-op", Password: "s3cret99"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, claims, err := auth.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims["username"] != "gate-op" || claims["role"] != "operator" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	ctx := context.Background()
	auth := newAuthService(newMemUserRepo())

	if _, err := auth.Register(ctx, domain.RegisterUserDTO{Username: "gate-op", Password: "s3cret99"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	resp, err := auth.Login(ctx, domain.LoginUserDTO{Username: "gate-op", Password: "s3cret99"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	tampered := resp.Token[:len(resp.Token)-2] + "xx"
	if _, _, err := auth.ValidateToken(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("tampered token err = %v, want ErrTokenInvalid", err)
	}

	other := NewAuthService(newMemUserRepo(), "other-secret", time.Hour)
	if _, _, err := other.ValidateToken(resp.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("wrong secret err = %v, want ErrTokenInvalid", err)
	}

	if _, _, err := auth.ValidateToken(strings.Repeat("x", 20)); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("garbage token err = %v, want ErrTokenInvalid", err)
	}
}
