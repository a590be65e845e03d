// Package redis stores deferred guest checkouts in Redis until the shopper
// signs up and resumes.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/recregt/e-kktc/internal/domain/cart"
	"github.com/recregt/e-kktc/internal/domain/checkout"
)

const (
	keyNamespace  = "kktc"
	pendingPrefix = "pending"

	// DefaultPendingTTL bounds how long a guest has to finish sign-up.
	DefaultPendingTTL = 7 * 24 * time.Hour
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

var _ checkout.PendingStore = (*PendingStore)(nil)

// PendingStore implements checkout.PendingStore. Every cart session owns two
// keys, one for the form and one for the cart lines, both expiring after ttl.
type PendingStore struct {
	store cmdable
	ttl   time.Duration
}

// NewClient parses a redis:// URL and verifies connectivity.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewPendingStore returns a PendingStore on top of client. A non-positive
// ttl selects DefaultPendingTTL.
func NewPendingStore(client *redis.Client, ttl time.Duration) *PendingStore {
	return newPendingStore(client, ttl)
}

func newPendingStore(store cmdable, ttl time.Duration) *PendingStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &PendingStore{store: store, ttl: ttl}
}

// FormKey returns the key holding the stashed form of session.
func FormKey(session string) string {
	return pendingKey(session, "form")
}

// LinesKey returns the key holding the stashed cart lines of session.
func LinesKey(session string) string {
	return pendingKey(session, "lines")
}

func pendingKey(session, slot string) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyNamespace, pendingPrefix, session, slot)
}

func (s *PendingStore) SaveForm(ctx context.Context, session string, f checkout.Form) error {
	if err := s.store.Set(ctx, FormKey(session), checkout.EncodeForm(f), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set pending form: %w", err)
	}
	return nil
}

func (s *PendingStore) SaveLines(ctx context.Context, session string, lines []cart.Line) error {
	if err := s.store.Set(ctx, LinesKey(session), checkout.EncodeLines(lines), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set pending lines: %w", err)
	}
	return nil
}

// Load returns the stashed checkout of session, or checkout.ErrNoPending when
// either key is missing or expired.
func (s *PendingStore) Load(ctx context.Context, session string) (*checkout.Pending, error) {
	rawForm, err := s.get(ctx, FormKey(session))
	if err != nil {
		return nil, err
	}
	rawLines, err := s.get(ctx, LinesKey(session))
	if err != nil {
		return nil, err
	}

	form, err := checkout.DecodeForm(rawForm)
	if err != nil {
		return nil, err
	}
	lines, err := checkout.DecodeLines(rawLines)
	if err != nil {
		return nil, err
	}
	return &checkout.Pending{Form: form, Lines: lines}, nil
}

func (s *PendingStore) get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.store.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Clear drops both keys of session.
func (s *PendingStore) Clear(ctx context.Context, session string) error {
	if err := s.store.Del(ctx, FormKey(session), LinesKey(session)).Err(); err != nil {
		return fmt.Errorf("redis del pending checkout: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *PendingStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx).Err()
}
