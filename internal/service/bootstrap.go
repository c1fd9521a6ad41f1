package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

// defaultAccountPassword is the fixed secret of the two seeded accounts.
// Intended for development and first-run access; rotate in production.
const defaultAccountPassword = "123"

type defaultAccount struct {
	username string
	email    string
	role     string
}

var defaultAccounts = []defaultAccount{
	{username: "admin", email: "admin@admin.com", role: domain.RoleAdmin},
	{username: "user", email: "user@user.com", role: domain.RoleUser},
}

// Bootstrapper ensures the canonical roles and accounts exist before the
// service accepts traffic.
type Bootstrapper struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	dispatcher events.Dispatcher
	bcryptCost int
	logger     *zap.Logger
}

// NewBootstrapper builds the bootstrapper.
func NewBootstrapper(users repository.UserRepository, roles repository.RoleRepository, dispatcher events.Dispatcher, bcryptCost int, logger *zap.Logger) *Bootstrapper {
	return &Bootstrapper{
		users:      users,
		roles:      roles,
		dispatcher: dispatcher,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// EnsureDefaults is idempotent and race-safe: every role and account is
// created through an insert that tolerates a concurrent instance winning,
// and each account is written in a single transaction. Any store failure
// is returned to the caller and must abort startup.
func (b *Bootstrapper) EnsureDefaults(ctx context.Context) error {
	ensuredRoles := domain.DefaultRoleNames()
	for _, name := range ensuredRoles {
		if _, err := b.roles.Ensure(ctx, name); err != nil {
			return err
		}
		b.logger.Info("role ensured", zap.String("role", name))
	}

	ensuredAccounts := make([]string, 0, len(defaultAccounts))
	for _, account := range defaultAccounts {
		if err := b.ensureAccount(ctx, account); err != nil {
			return err
		}
		ensuredAccounts = append(ensuredAccounts, account.email)
	}

	if b.dispatcher != nil {
		_ = b.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventBootstrapCompleted,
			Timestamp: time.Now(),
			Payload: events.BootstrapCompletedPayload{
				RolesEnsured:    ensuredRoles,
				AccountsEnsured: ensuredAccounts,
			},
		})
	}
	return nil
}

func (b *Bootstrapper) ensureAccount(ctx context.Context, account defaultAccount) error {
	_, err := b.users.GetByEmail(ctx, account.email)
	if err == nil {
		b.logger.Info("default account already present", zap.String("email", account.email))
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(defaultAccountPassword, b.bcryptCost)
	if err != nil {
		return err
	}

	user := &domain.User{
		Username:     account.username,
		Email:        account.email,
		PasswordHash: hash,
	}
	if err := b.users.Create(ctx, user, account.role); err != nil {
		// Another instance created the account between our lookup and
		// insert; the row exists, which is all bootstrap guarantees.
		if errors.Is(err, repository.ErrDuplicate) {
			b.logger.Info("default account created concurrently", zap.String("email", account.email))
			return nil
		}
		return err
	}

	b.logger.Info("default account created",
		zap.String("email", account.email),
		zap.String("role", account.role))
	return nil
}
