package ports

import "context"

// KeyLocker serializes work on a set of keys across callers (and replicas,
// for distributed implementations). The returned release func must be
// called once the guarded write has finished.
type KeyLocker interface {
	Lock(ctx context.Context, keys ...string) (release func(context.Context) error, err error)
}
