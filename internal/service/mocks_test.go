package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// --- Mocks ---

type memUsers struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	tokens map[string]*domain.RefreshToken
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*domain.User{}, tokens: map[string]*domain.RefreshToken{}}
}

func (m *memUsers) CreateUser(_ context.Context, email, name, hash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, &domain.ErrConflict{Message: "email already registered"}
		}
	}
	u := &domain.User{ID: uuid.NewString(), Email: email, Name: name, PasswordHash: hash, CreatedAt: time.Now()}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) RecordLoginFailure(_ context.Context, id string, attempts int, lockedUntil *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.FailedAttempts = attempts
	u.LockedUntil = lockedUntil
	return nil
}

func (m *memUsers) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &at
	return nil
}

func (m *memUsers) StoreRefreshToken(_ context.Context, userID, hash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[hash] = &domain.RefreshToken{ID: uuid.NewString(), UserID: userID, TokenHash: hash, ExpiresAt: expiresAt}
	return nil
}

func (m *memUsers) GetRefreshToken(_ context.Context, hash string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.tokens[hash]; ok {
		cp := *rt
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) RevokeRefreshToken(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.tokens[hash]; ok {
		rt.Revoked = true
	}
	return nil
}

func (m *memUsers) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.tokens {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

type memTransactions struct {
	mu        sync.Mutex
	txs       []domain.Transaction
	listCalls int
	failOn    string // category whose insert fails
}

func (m *memTransactions) InsertTransaction(_ context.Context, userID string, in domain.TransactionInput) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && in.Category == m.failOn {
		return nil, errors.New("disk full")
	}
	tx := domain.Transaction{
		ID: uuid.NewString(), UserID: userID, Date: in.Date, Amount: in.Amount, Type: in.Type,
		Category: in.Category, PaymentMethod: in.PaymentMethod, Note: in.Note, CreatedAt: time.Now(),
	}
	m.txs = append(m.txs, tx)
	return &tx, nil
}

func (m *memTransactions) ListTransactions(_ context.Context, userID string, f domain.TransactionFilter) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	out := []domain.Transaction{}
	for _, tx := range m.txs {
		if tx.UserID != userID {
			continue
		}
		if f.From != nil && tx.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && !tx.Date.Before(*f.To) {
			continue
		}
		if f.Category != "" && tx.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(tx.Note), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memTransactions) DeleteTransaction(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, tx := range m.txs {
		if tx.ID == id && tx.UserID == userID {
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "transaction", ID: id}
}

func (m *memTransactions) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// gatedTransactions pauses the first listing after its snapshot is taken
// until release is closed.
type gatedTransactions struct {
	*memTransactions
	listed  chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedTransactions() *gatedTransactions {
	return &gatedTransactions{
		memTransactions: &memTransactions{},
		listed:          make(chan struct{}),
		release:         make(chan struct{}),
	}
}

func (g *gatedTransactions) ListTransactions(ctx context.Context, userID string, f domain.TransactionFilter) ([]domain.Transaction, error) {
	txs, err := g.memTransactions.ListTransactions(ctx, userID, f)
	g.once.Do(func() {
		close(g.listed)
		<-g.release
	})
	return txs, err
}

// cancellingTransactions cancels the import context after the first insert.
type cancellingTransactions struct {
	*memTransactions
	cancel context.CancelFunc
}

func (c *cancellingTransactions) InsertTransaction(ctx context.Context, userID string, in domain.TransactionInput) (*domain.Transaction, error) {
	tx, err := c.memTransactions.InsertTransaction(ctx, userID, in)
	c.cancel()
	return tx, err
}

type memBudgets struct {
	mu      sync.Mutex
	budgets map[string]*domain.Budget
}

func newMemBudgets() *memBudgets {
	return &memBudgets{budgets: map[string]*domain.Budget{}}
}

func (m *memBudgets) GetBudget(_ context.Context, userID, month string) (*domain.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.budgets[userID+"|"+month]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (m *memBudgets) UpsertBudget(_ context.Context, b *domain.Budget) (*domain.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := b.UserID + "|" + b.Month
	existing, ok := m.budgets[key]
	cp := *b
	if ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.ID = uuid.NewString()
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = time.Now()
	m.budgets[key] = &cp
	out := cp
	return &out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// --- Fixtures ---

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
