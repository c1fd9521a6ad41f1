package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
)

func TestEnsureDefaultsCreatesRolesAndAccounts(t *testing.T) {
	users := newFakeUserRepo()
	roles := newFakeRoleRepo()
	b := NewBootstrapper(users, roles, nil, bcrypt.MinCost, zap.NewNop())

	if err := b.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}

	for _, name := range []string{domain.RoleAdmin, domain.RoleUser} {
		if _, err := roles.GetByName(context.Background(), name); err != nil {
			t.Fatalf("role %s missing after bootstrap: %v", name, err)
		}
	}

	admin, err := users.GetByEmail(context.Background(), "admin@admin.com")
	if err != nil {
		t.Fatalf("admin account missing: %v", err)
	}
	if !admin.HasRole(domain.RoleAdmin) {
		t.Fatalf("admin roles = %v, want ADMIN", admin.RoleNames())
	}
	if err := auth.ComparePassword(admin.PasswordHash, "123"); err != nil {
		t.Fatalf("admin default password does not verify: %v", err)
	}

	user, err := users.GetByEmail(context.Background(), "user@user.com")
	if err != nil {
		t.Fatalf("user account missing: %v", err)
	}
	if !user.HasRole(domain.RoleUser) {
		t.Fatalf("user roles = %v, want USER", user.RoleNames())
	}
}

func TestEnsureDefaultsIsIdempotent(t *testing.T) {
	users := newFakeUserRepo()
	roles := newFakeRoleRepo()
	b := NewBootstrapper(users, roles, nil, bcrypt.MinCost, zap.NewNop())

	for i := 0; i < 2; i++ {
		if err := b.EnsureDefaults(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if len(roles.roles) != 2 {
		t.Fatalf("role rows = %d, want exactly 2", len(roles.roles))
	}
	count, err := users.Count(context.Background())
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 2 {
		t.Fatalf("account rows = %d, want exactly 2", count)
	}
}
