// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	DeletePrefix(prefix string)
	Generation(prefix string) uint64
	SetIfGeneration(key, prefix string, gen uint64, value T) bool
}

// UserStore persists accounts and their refresh tokens.
type UserStore interface {
	CreateUser(ctx context.Context, email, name, passwordHash string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	RecordLoginFailure(ctx context.Context, id string, attempts int, lockedUntil *time.Time) error
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error

	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// TransactionStore persists transactions. Every call is scoped by owner.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, userID string, in domain.TransactionInput) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string, f domain.TransactionFilter) ([]domain.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// BudgetStore persists at most one budget per (user, month).
type BudgetStore interface {
	GetBudget(ctx context.Context, userID, month string) (*domain.Budget, error)
	UpsertBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error)
}

// EventPublisher emits domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.Event) error
	Close() error
}
