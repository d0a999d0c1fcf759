package service

import (
	"context"
	"errors"
	"testing"

	"carhub/internal/domain"
)

type fakeUserRepo struct {
	users  map[string]*domain.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}, nextID: 1}
}

func (r *fakeUserRepo) Init(ctx context.Context) error { return nil }

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (int64, error) {
	if _, exists := r.users[user.Username]; exists {
		return 0, domain.ErrUserExists
	}
	user.ID = r.nextID
	r.nextID++
	cp := *user
	r.users[user.Username] = &cp
	return user.ID, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func TestUserService_RegisterThenAuthenticate(t *testing.T) {
	t.Parallel()

	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	created, err := svc.Register(ctx, "alice", "opensesame")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected assigned user id")
	}
	if created.PasswordHash != "" {
		t.Fatalf("registered user leaked password hash")
	}

	got, err := svc.Authenticate(ctx, "alice", "opensesame")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("user id mismatch: got %d want %d", got.ID, created.ID)
	}
	if got.PasswordHash != "" {
		t.Fatalf("authenticated user leaked password hash")
	}
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob", "password1"); err != nil {
		t.Fatalf("first Register error: %v", err)
	}

	_, err := svc.Register(ctx, "bob", "password2")
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserService_AuthenticateFailures(t *testing.T) {
	t.Parallel()

	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "carol", "correct-horse"); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	// unknown user and wrong password are indistinguishable
	if _, err := svc.Authenticate(ctx, "nobody", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "carol", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserService_RegisterValidation(t *testing.T) {
	t.Parallel()

	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "password"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty username: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Register(ctx, "dave", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty password: expected ErrValidation, got %v", err)
	}
}
