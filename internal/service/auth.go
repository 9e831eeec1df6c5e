// Package service — AuthService handles registration, login lockout, JWT
// access tokens and rotating refresh tokens.
package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-bfa-go/internal/port"
)

var authTracer = otel.Tracer("service/auth")

const (
	maxFailedAttempts = 5
	lockDuration      = 30 * time.Minute
	bcryptCost        = 12
	minPasswordLength = 8
)

// AuthService orchestrates authentication flows.
type AuthService struct {
	store      port.UserStore
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	cost       int
	now        func() time.Time
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithBcryptCost overrides the bcrypt work factor.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.UserStore, jwtSecret string, accessTTL, refreshTTL time.Duration, metrics *observability.Metrics, logger *zap.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		cost:       bcryptCost,
		now:        time.Now,
		metrics:    metrics,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL is the lifetime of issued access tokens.
func (s *AuthService) AccessTTL() time.Duration { return s.accessTTL }

// ============================================================
// Register — POST /v1/auth/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.UserView, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, email, strings.TrimSpace(req.Name), string(hash))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	view := user.View()
	return &view, nil
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email and password are required"}
	}

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		s.metrics.IncrLogin("failure")
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	now := s.now()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		remaining := user.LockedUntil.Sub(now).Minutes()
		s.metrics.IncrLogin("locked")
		s.logger.Warn("login: account temporarily locked",
			zap.String("user_id", user.ID),
			zap.Float64("remaining_minutes", remaining),
		)
		return nil, &domain.ErrUnauthorized{
			Message: fmt.Sprintf("account temporarily locked, try again in %.0f minutes", remaining),
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.recordFailure(ctx, user, now)
	}

	if err := s.store.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		s.logger.Warn("login: failed to reset attempts", zap.String("user_id", user.ID), zap.Error(err))
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrLogin("success")
	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return resp, nil
}

func (s *AuthService) recordFailure(ctx context.Context, user *domain.User, now time.Time) error {
	attempts := user.FailedAttempts + 1
	var lockedUntil *time.Time
	if attempts >= maxFailedAttempts {
		until := now.Add(lockDuration)
		lockedUntil = &until
		s.logger.Warn("login: account locked after max attempts",
			zap.String("user_id", user.ID),
			zap.Int("attempts", attempts),
			zap.Duration("lock_duration", lockDuration),
		)
	} else {
		s.logger.Warn("login: failed password attempt",
			zap.String("user_id", user.ID),
			zap.Int("attempts", attempts),
			zap.Int("max", maxFailedAttempts),
		)
	}
	if lockedUntil != nil {
		// The lock itself resets the counter.
		attempts = 0
	}
	if err := s.store.RecordLoginFailure(ctx, user.ID, attempts, lockedUntil); err != nil {
		s.logger.Warn("login: failed to record attempt", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.metrics.IncrLogin("failure")

	if lockedUntil != nil {
		return &domain.ErrUnauthorized{
			Message: fmt.Sprintf("account locked for %d minutes after %d failed attempts", int(lockDuration.Minutes()), maxFailedAttempts),
		}
	}
	return &domain.ErrUnauthorized{
		Message: fmt.Sprintf("invalid credentials, %d attempt(s) left", maxFailedAttempts-attempts),
	}
}

// ============================================================
// Me — GET /v1/auth/me
// ============================================================

func (s *AuthService) Me(ctx context.Context, userID string) (*domain.UserView, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Me")
	defer span.End()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	view := user.View()
	return &view, nil
}

// ============================================================
// ForgotPassword — POST /v1/auth/password/forgot
// ============================================================

// ForgotPassword acknowledges every well-formed request so callers cannot
// probe which emails are registered. No mail is sent.
func (s *AuthService) ForgotPassword(ctx context.Context, req *domain.ForgotPasswordRequest) (*domain.SuccessResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.ForgotPassword")
	defer span.End()

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user != nil {
		s.logger.Info("password reset requested", zap.String("user_id", user.ID))
	}

	return &domain.SuccessResponse{
		Message: "if the email is registered, reset instructions will be sent",
	}, nil
}

// ============================================================
// Validation helpers
// ============================================================

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", &domain.ErrValidation{Field: "email", Message: "is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", &domain.ErrValidation{Field: "email", Message: "is not a valid address"}
	}
	return email, nil
}

func validatePassword(p string) error {
	if len(p) < minPasswordLength {
		return &domain.ErrValidation{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	for _, r := range p {
		if unicode.IsDigit(r) {
			return nil
		}
	}
	return &domain.ErrValidation{Field: "password", Message: "must contain a digit"}
}
