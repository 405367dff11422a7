package authkit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// fakeProvider is a map-backed UserProvider for engine tests.
type fakeProvider struct {
	byEmail map[string]UserRecord
	byID    map[string]UserRecord
}

func newFakeProvider(users ...UserRecord) *fakeProvider {
	p := &fakeProvider{
		byEmail: make(map[string]UserRecord),
		byID:    make(map[string]UserRecord),
	}
	for _, u := range users {
		p.byEmail[u.Email] = u
		p.byID[u.UserID] = u
	}
	return p
}

func (p *fakeProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	u, ok := p.byEmail[email]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (p *fakeProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	u, ok := p.byID[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func testUser(t *testing.T) UserRecord {
	t.Helper()
	return UserRecord{
		UserID:       "user-1",
		Email:        "doc@example.com",
		PasswordHash: hashPassword(t, "password123"),
		FullName:     "Dr. Example",
		UserType:     "provider",
		Role:         "physician",
		Permissions:  []string{"charts:read"},
		Active:       true,
	}
}

func newTestEngine(t *testing.T, cfg Config, users ...UserRecord) *Engine {
	t.Helper()
	return newTestEngineWithSink(t, cfg, nil, users...)
}

func newTestEngineWithSink(t *testing.T, cfg Config, sink AuditSink, users ...UserRecord) *Engine {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	builder := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(newFakeProvider(users...))
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("test-secret")
	cfg.Lockout.Threshold = 3
	return cfg
}
