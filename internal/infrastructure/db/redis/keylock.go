package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/supplytrack/accounts/internal/core/domain"
)

const (
	defaultLockTTL    = 10 * time.Second
	defaultRetries    = 20
	defaultRetryDelay = 50 * time.Millisecond
	lockPrefix        = "lock:"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// KeyLocker takes short lived SET NX locks on account keys so that creations
// racing on the same address or display name run one at a time across
// replicas.
type KeyLocker struct {
	client     redis.Cmdable
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
}

// NewKeyLocker returns a locker whose locks expire after ttl (default 10s).
func NewKeyLocker(client redis.Cmdable, ttl time.Duration) *KeyLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &KeyLocker{
		client:     client,
		ttl:        ttl,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
	}
}

// Lock acquires every key, in sorted order to avoid lock ordering deadlocks.
// If any key stays busy past the retry budget, the keys taken so far are
// released and domain.ErrLockBusy is returned.
func (l *KeyLocker) Lock(ctx context.Context, keys ...string) (func(context.Context) error, error) {
	sorted := lockKeys(keys)
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	held := make([]string, 0, len(sorted))
	release := func(ctx context.Context) error {
		var firstErr error
		for _, k := range held {
			if err := releaseScript.Run(ctx, l.client, []string{k}, token).Err(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("release %s: %w", k, err)
			}
		}
		return firstErr
	}

	for _, k := range sorted {
		ok, err := l.acquire(ctx, k, token)
		if err != nil || !ok {
			_ = release(context.WithoutCancel(ctx))
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrLockBusy, k)
		}
		held = append(held, k)
	}
	return release, nil
}

func (l *KeyLocker) acquire(ctx context.Context, key, token string) (bool, error) {
	for i := 0; i <= l.retries; i++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return true, nil
		}
		if i < l.retries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(l.retryDelay):
			}
		}
	}
	return false, nil
}

// lockKeys prefixes, de-duplicates and sorts the requested keys.
func lockKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = lockPrefix + k
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
