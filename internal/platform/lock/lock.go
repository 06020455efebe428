// Package lock serializes ledger writes across processes with redis keys.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerbook/ledger/internal/shared"
)

const (
	defaultWait  = 2 * time.Second
	defaultRetry = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker acquires sets of keys with SET NX PX.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// Option tunes a Locker.
type Option func(*Locker)

// WithWait bounds how long Acquire keeps retrying a held key.
func WithWait(d time.Duration) Option {
	return func(l *Locker) { l.wait = d }
}

// WithRetryInterval sets the pause between attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(l *Locker) { l.retry = d }
}

// New returns a Locker whose keys expire after ttl.
func New(client *redis.Client, ttl time.Duration, opts ...Option) *Locker {
	l := &Locker{client: client, ttl: ttl, wait: defaultWait, retry: defaultRetry}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes every key or none. Keys are taken in sorted order so two writers never wait on
// each other in a cycle. The returned func releases what was taken.
func (l *Locker) Acquire(ctx context.Context, keys ...string) (func(context.Context) error, error) {
	keys = uniqueSorted(keys)
	token := uuid.NewString()

	held := make([]string, 0, len(keys))
	release := func(ctx context.Context) error {
		var errs []error
		for _, key := range held {
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				errs = append(errs, fmt.Errorf("platform/lock: release %s: %w", key, err))
			}
		}
		return errors.Join(errs...)
	}

	for _, key := range keys {
		if err := l.take(ctx, key, token); err != nil {
			_ = release(context.WithoutCancel(ctx))
			return nil, err
		}
		held = append(held, key)
	}
	return release, nil
}

func (l *Locker) take(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("platform/lock: set %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if !time.Now().Add(l.retry).Before(deadline) {
			return fmt.Errorf("platform/lock: %s: %w", key, shared.ErrLockNotAcquired)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
