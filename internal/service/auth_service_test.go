package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/limiters"
	"github.com/spec-kit/auth-service/internal/repository"
)

type fakeUserRepo struct {
	byEmail map[string]*domain.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User, roleNames ...string) error {
	if _, exists := r.byEmail[user.Email]; exists {
		return repository.ErrDuplicate
	}
	for _, other := range r.byEmail {
		if other.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	for _, name := range roleNames {
		user.Roles = append(user.Roles, domain.Role{Name: name})
	}
	stored := *user
	r.byEmail[user.Email] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]*domain.User, error) {
	var users []*domain.User
	for _, user := range r.byEmail {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.byEmail)), nil
}

type fakeRoleRepo struct {
	roles       map[string]*domain.Role
	ensureCalls int
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: map[string]*domain.Role{}}
}

func (r *fakeRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return role, nil
}

func (r *fakeRoleRepo) Ensure(_ context.Context, name string) (*domain.Role, error) {
	r.ensureCalls++
	if role, ok := r.roles[name]; ok {
		return role, nil
	}
	role := &domain.Role{ID: int64(len(r.roles) + 1), Name: name}
	r.roles[name] = role
	return role, nil
}

type fakeAttemptStore struct {
	counts map[string]int64
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{counts: map[string]int64{}}
}

func (s *fakeAttemptStore) Get(_ context.Context, key string) (int64, error) {
	return s.counts[key], nil
}

func (s *fakeAttemptStore) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeAttemptStore) Del(_ context.Context, key string) error {
	delete(s.counts, key)
	return nil
}

func testTokenManager(t *testing.T) *auth.TokenManager {
	t.Helper()
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	keys := &auth.KeyMaterial{Private: private, Public: &private.PublicKey}
	return auth.NewTokenManager(keys, "mybackend", time.Hour)
}

func newTestService(t *testing.T, users repository.UserRepository, limiter *limiters.LoginLimiter) *AuthService {
	t.Helper()
	return NewAuthService(AuthDependencies{
		UserRepo:   users,
		RoleRepo:   newFakeRoleRepo(),
		Tokens:     testTokenManager(t),
		Limiter:    limiter,
		BcryptCost: bcrypt.MinCost,
		Logger:     zap.NewNop(),
	})
}

func seedUser(t *testing.T, repo *fakeUserRepo, username, email, password, role string) {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &domain.User{Username: username, Email: email, PasswordHash: hash}
	if err := repo.Create(context.Background(), user, role); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestLoginFailureCausesAreIndistinguishable(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, "admin", "admin@admin.com", "123", domain.RoleAdmin)
	svc := newTestService(t, users, nil)

	_, _, _, unknownErr := svc.Login(context.Background(), "nobody@nowhere.com", "123")
	_, _, _, wrongPassErr := svc.Login(context.Background(), "admin@admin.com", "wrong")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown email = %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(wrongPassErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v, want ErrInvalidCredentials", wrongPassErr)
	}
	if unknownErr.Error() != wrongPassErr.Error() {
		t.Fatalf("failure causes leak: %q vs %q", unknownErr, wrongPassErr)
	}
}

func TestLoginSuccessIssuesValidToken(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, "admin", "admin@admin.com", "123", domain.RoleAdmin)
	svc := newTestService(t, users, nil)

	user, token, expiresAt, err := svc.Login(context.Background(), "admin@admin.com", "123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || expiresAt.Before(time.Now()) {
		t.Fatalf("token %q expiring %v looks wrong", token, expiresAt)
	}

	identity, err := svc.TokenManager().Validate(token, time.Now())
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if identity.SubjectID != user.ID {
		t.Fatalf("subject = %q, want %q", identity.SubjectID, user.ID)
	}
	if !identity.HasScope(domain.RoleAdmin) {
		t.Fatalf("scopes = %v, want ADMIN granted", identity.ScopeNames())
	}
}

func TestLoginRateLimited(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, "admin", "admin@admin.com", "123", domain.RoleAdmin)
	limiter := limiters.NewLoginLimiter(newFakeAttemptStore(), 2, time.Minute, zap.NewNop())
	svc := newTestService(t, users, limiter)

	for i := 0; i < 2; i++ {
		if _, _, _, err := svc.Login(context.Background(), "admin@admin.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d = %v, want ErrInvalidCredentials", i, err)
		}
	}

	// The window is full now; even the correct password is rejected before
	// the credential check runs.
	if _, _, _, err := svc.Login(context.Background(), "admin@admin.com", "123"); !errors.Is(err, ErrTooManyLoginAttempts) {
		t.Fatalf("limited attempt = %v, want ErrTooManyLoginAttempts", err)
	}

	// A different email is unaffected.
	if _, _, _, err := svc.Login(context.Background(), "other@other.com", "123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("other email = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginSuccessResetsLimiter(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, "admin", "admin@admin.com", "123", domain.RoleAdmin)
	store := newFakeAttemptStore()
	limiter := limiters.NewLoginLimiter(store, 3, time.Minute, zap.NewNop())
	svc := newTestService(t, users, limiter)

	if _, _, _, err := svc.Login(context.Background(), "admin@admin.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("failed attempt = %v, want ErrInvalidCredentials", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "admin@admin.com", "123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(store.counts) != 0 {
		t.Fatalf("attempt counters = %v, want cleared after success", store.counts)
	}
}

func TestRegisterAssignsUserRole(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(t, users, nil)

	user, err := svc.Register(context.Background(), "alice", "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !user.HasRole(domain.RoleUser) {
		t.Fatalf("roles = %v, want USER", user.RoleNames())
	}
	if user.PasswordHash == "s3cret" {
		t.Fatal("password stored in plaintext")
	}
	if err := auth.ComparePassword(user.PasswordHash, "s3cret"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestService(t, users, nil)

	if _, err := svc.Register(context.Background(), "alice", "alice@example.com", "pw"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), "alice2", "alice@example.com", "pw")
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("duplicate register = %v, want ErrDuplicateIdentity", err)
	}
}
