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
	"github.com/spec-kit/auth-service/internal/limiters"
	"github.com/spec-kit/auth-service/internal/repository"
)

// ErrInvalidCredentials covers both unknown email and wrong password.
// The two causes are deliberately indistinguishable to the caller so the
// login endpoint cannot be used to enumerate registered emails.
var ErrInvalidCredentials = errors.New("user or password is invalid")

// ErrDuplicateIdentity reports a registration against an existing email or
// username.
var ErrDuplicateIdentity = errors.New("identity already registered")

// ErrTooManyLoginAttempts reports a rate-limited login.
var ErrTooManyLoginAttempts = errors.New("too many login attempts")

// AuthService coordinates credential verification, registration and token
// issuance.
type AuthService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	tokens     *auth.TokenManager
	limiter    *limiters.LoginLimiter
	dispatcher events.Dispatcher
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	RoleRepo   repository.RoleRepository
	Tokens     *auth.TokenManager
	Limiter    *limiters.LoginLimiter
	Dispatcher events.Dispatcher
	BcryptCost int
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		roles:      deps.RoleRepo,
		tokens:     deps.Tokens,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		bcryptCost: deps.BcryptCost,
		logger:     deps.Logger,
	}
}

// TokenManager exposes the issuer/validator for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Login verifies credentials and issues a signed token on success.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	if !s.limiter.Allow(ctx, email) {
		return nil, "", time.Time{}, ErrTooManyLoginAttempts
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.recordLoginFailure(ctx, email, "unknown identifier")
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.recordLoginFailure(ctx, email, "password mismatch")
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user, time.Now())
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.limiter.Reset(ctx, email)
	s.publish(ctx, events.Event{
		Type:      events.EventLoginSucceeded,
		SubjectID: user.ID,
		Email:     user.Email,
	})
	return user, token, expiresAt, nil
}

// Register creates a new identity carrying the USER role. The new account
// is not logged in implicitly; the client performs a normal login next.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user, domain.RoleUser); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventUserRegistered,
		SubjectID: user.ID,
		Email:     user.Email,
		Payload:   events.UserRegisteredPayload{Username: username, Roles: user.RoleNames()},
	})
	return user, nil
}

// ListUsers returns all identities.
func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// GetUser loads a single identity by id.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// CountUsers returns the number of identities.
func (s *AuthService) CountUsers(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

func (s *AuthService) recordLoginFailure(ctx context.Context, email, reason string) {
	s.limiter.RecordFailure(ctx, email)
	s.publish(ctx, events.Event{
		Type:    events.EventLoginFailed,
		Email:   email,
		Payload: events.LoginFailedPayload{Reason: reason},
	})
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
