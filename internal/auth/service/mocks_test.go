package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	authrepo "github.com/AlibekovAA/examination-system/internal/auth/repository"
	"github.com/AlibekovAA/examination-system/internal/auth/service"
	"github.com/AlibekovAA/examination-system/internal/common/clock"
	"github.com/AlibekovAA/examination-system/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/examination-system/internal/common/crypto"
	"github.com/AlibekovAA/examination-system/internal/common/db"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
	"github.com/AlibekovAA/examination-system/internal/common/resilience"
	"github.com/AlibekovAA/examination-system/internal/notification"
	userdomain "github.com/AlibekovAA/examination-system/internal/user/domain"
	userrepo "github.com/AlibekovAA/examination-system/internal/user/repository"
)

const (
	testJWTSecret = "test-secret-key-that-is-long-enough-for-hs256"
	testIssuer    = "exam-issuer"
	testAudience  = "exam-audience"
	testPassword  = "P@ssw0rd"
)

// memUserRepo keeps users in memory and enforces the refresh token version
// check the same way the postgres repository does.
type memUserRepo struct {
	mu    sync.Mutex
	users map[userdomain.ID]userdomain.User
	roles map[userdomain.ID][]string

	claims map[userdomain.ID][]userdomain.Claim

	createFunc              func(ctx context.Context, user userdomain.User, role string) error
	findByEmailFunc         func(ctx context.Context, email string) (userdomain.User, error)
	findByRefreshTokenFunc  func(ctx context.Context, token string) (userdomain.User, error)
	updateRefreshTokensFunc func(ctx context.Context, id userdomain.ID, expectedVersion int64, tokens []userdomain.RefreshToken) (int64, error)
	updateCalls             int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:  make(map[userdomain.ID]userdomain.User),
		roles:  make(map[userdomain.ID][]string),
		claims: make(map[userdomain.ID][]userdomain.Claim),
	}
}

func (r *memUserRepo) Create(ctx context.Context, user userdomain.User, role string) error {
	if r.createFunc != nil {
		return r.createFunc(ctx, user, role)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return userrepo.ErrUsernameAlreadyExists
		}
		if u.Email == user.Email {
			return userrepo.ErrEmailAlreadyExists
		}
	}
	r.users[user.ID] = user
	r.roles[user.ID] = []string{role}
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id userdomain.ID) (userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return userdomain.User{}, userrepo.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (userdomain.User, error) {
	return r.find(func(u userdomain.User) bool { return u.Username == username })
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (userdomain.User, error) {
	if r.findByEmailFunc != nil {
		return r.findByEmailFunc(ctx, email)
	}
	return r.find(func(u userdomain.User) bool { return u.Email == email })
}

func (r *memUserRepo) FindByRefreshToken(ctx context.Context, token string) (userdomain.User, error) {
	if r.findByRefreshTokenFunc != nil {
		return r.findByRefreshTokenFunc(ctx, token)
	}
	return r.find(func(u userdomain.User) bool {
		_, ok := u.FindRefreshToken(token)
		return ok
	})
}

func (r *memUserRepo) GetRoles(ctx context.Context, id userdomain.ID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.roles[id]...), nil
}

func (r *memUserRepo) GetClaims(ctx context.Context, id userdomain.ID) ([]userdomain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]userdomain.Claim(nil), r.claims[id]...), nil
}

func (r *memUserRepo) MarkEmailConfirmed(ctx context.Context, id userdomain.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return userrepo.ErrUserNotFound
	}
	u.EmailConfirmed = true
	r.users[id] = u
	return nil
}

func (r *memUserRepo) UpdateRefreshTokens(ctx context.Context, id userdomain.ID, expectedVersion int64, tokens []userdomain.RefreshToken) (int64, error) {
	r.mu.Lock()
	r.updateCalls++
	hook := r.updateRefreshTokensFunc
	r.mu.Unlock()
	if hook != nil {
		return hook(ctx, id, expectedVersion, tokens)
	}
	return r.storeTokens(id, expectedVersion, tokens)
}

func (r *memUserRepo) storeTokens(id userdomain.ID, expectedVersion int64, tokens []userdomain.RefreshToken) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, userrepo.ErrUserNotFound
	}
	if u.Version != expectedVersion {
		return 0, userrepo.ErrVersionConflict
	}
	u.RefreshTokens = append([]userdomain.RefreshToken(nil), tokens...)
	u.Version++
	r.users[id] = u
	return u.Version, nil
}

func (r *memUserRepo) ListWithStaleRefreshTokens(ctx context.Context, cutoff time.Time, afterID userdomain.ID, limit int) ([]userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []userdomain.User
	for _, u := range r.users {
		if afterID != "" && u.ID <= afterID {
			continue
		}
		if len(userdomain.PruneRefreshTokens(u.RefreshTokens, cutoff, 0)) != len(u.RefreshTokens) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memUserRepo) put(u userdomain.User, roles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	r.roles[u.ID] = roles
}

func (r *memUserRepo) get(t *testing.T, id userdomain.ID) userdomain.User {
	t.Helper()
	u, err := r.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("user %s: %v", id, err)
	}
	return u
}

func (r *memUserRepo) find(match func(userdomain.User) bool) (userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		u := r.users[userdomain.ID(id)]
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return userdomain.User{}, userrepo.ErrUserNotFound
}

func cloneUser(u userdomain.User) userdomain.User {
	u.RefreshTokens = append([]userdomain.RefreshToken(nil), u.RefreshTokens...)
	return u
}

type memConfirmationStore struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration

	saveFunc func(ctx context.Context, userID, tokenHash string, ttl time.Duration) error
}

func newMemConfirmationStore() *memConfirmationStore {
	return &memConfirmationStore{
		entries: make(map[string]string),
		ttls:    make(map[string]time.Duration),
	}
}

func (s *memConfirmationStore) Save(ctx context.Context, userID, tokenHash string, ttl time.Duration) error {
	if s.saveFunc != nil {
		return s.saveFunc(ctx, userID, tokenHash, ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = tokenHash
	s.ttls[userID] = ttl
	return nil
}

func (s *memConfirmationStore) Consume(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.entries[userID]
	if !ok {
		return "", authrepo.ErrConfirmationNotFound
	}
	delete(s.entries, userID)
	return hash, nil
}

type mockSender struct {
	mu       sync.Mutex
	sent     []notification.Message
	sendFunc func(ctx context.Context, msg notification.Message) error
}

func (m *mockSender) Send(ctx context.Context, msg notification.Message) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockSender) Provider() string { return "mock" }

func (m *mockSender) last(t *testing.T) notification.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected a message to be sent")
	}
	return m.sent[len(m.sent)-1]
}

// plainHasher stands in for bcrypt so tests stay fast.
type plainHasher struct {
	hashFunc    func(password string) (string, error)
	compareFunc func(hash, password string) error
}

func (h *plainHasher) Hash(password string) (string, error) {
	if h.hashFunc != nil {
		return h.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (h *plainHasher) Compare(hash, password string) error {
	if h.compareFunc != nil {
		return h.compareFunc(hash, password)
	}
	if hash != "hashed:"+password {
		return commoncrypto.ErrPasswordMismatch
	}
	return nil
}

type sequenceIDGenerator struct {
	mu   sync.Mutex
	next int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", g.next), nil
}

// sequenceTokens hands out predictable, distinct tokens.
type sequenceTokens struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func (s *sequenceTokens) Token(size int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.prefix, s.next), nil
}

type failingTokens struct{}

func (failingTokens) Token(int) (string, error) {
	return "", errors.New("entropy exhausted")
}

type authFixture struct {
	svc           *service.AuthService
	users         *memUserRepo
	confirmations *memConfirmationStore
	sender        *mockSender
	issuer        *service.TokenIssuer
	refresh       *service.RefreshTokenManager
	clock         *clock.MockClock
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("", "test", "info")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testBreaker(log *logger.Logger) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  constants.DefaultCircuitBreakerThreshold,
		Timeout:    constants.DefaultCircuitBreakerTimeout,
		ResetAfter: constants.DefaultCircuitBreakerReset,
		Name:       "test_user_store",
		IsFailure:  service.IsRepositoryFailure,
		Logger:     log,
	})
}

func newRefreshManager(t *testing.T, users *memUserRepo, clk clock.Clock) *service.RefreshTokenManager {
	t.Helper()
	log := testLogger(t)
	return service.NewRefreshTokenManager(
		users,
		testBreaker(log),
		&sequenceTokens{prefix: "refresh"},
		clk,
		service.RefreshTokenManagerConfig{
			TTL:       constants.DefaultRefreshTokenTTL,
			Retention: constants.DefaultRefreshTokenRetention,
			Retry: db.RetryConfig{
				MaxAttempts:  constants.RefreshTokenUpdateAttempts,
				InitialDelay: time.Millisecond,
				MaxDelay:     time.Millisecond,
				Multiplier:   1,
			},
		},
		log,
	)
}

func setupAuthService(t *testing.T) *authFixture {
	t.Helper()

	log := testLogger(t)
	clk := clock.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	ids := &sequenceIDGenerator{}
	users := newMemUserRepo()
	confirmations := newMemConfirmationStore()
	sender := &mockSender{}

	issuer, err := service.NewTokenIssuer(service.TokenIssuerConfig{
		Secret:   testJWTSecret,
		Issuer:   testIssuer,
		Audience: testAudience,
		Lifetime: 30 * time.Minute,
	}, ids, clk)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}

	refresh := newRefreshManager(t, users, clk)

	svc := service.NewAuthService(service.AuthServiceDeps{
		Users:              users,
		Confirmations:      confirmations,
		Sender:             sender,
		Hasher:             &plainHasher{},
		IDs:                ids,
		ConfirmationTokens: &sequenceTokens{prefix: "confirm"},
		Issuer:             issuer,
		RefreshTokens:      refresh,
		Policy:             service.DefaultPasswordPolicy(),
		Clock:              clk,
		Log:                log,
	}, service.AuthServiceConfig{
		ConfirmationTTL: time.Hour,
	})

	return &authFixture{
		svc:           svc,
		users:         users,
		confirmations: confirmations,
		sender:        sender,
		issuer:        issuer,
		refresh:       refresh,
		clock:         clk,
	}
}
