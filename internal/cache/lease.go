package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only when it is still held by the caller.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RefreshLease serializes token refreshes of one account across processes.
type RefreshLease struct {
	client   redis.Cmdable
	ttl      time.Duration
	newToken func() string
}

func NewRefreshLease(client redis.Cmdable, ttl time.Duration) *RefreshLease {
	return &RefreshLease{
		client:   client,
		ttl:      ttl,
		newToken: uuid.NewString,
	}
}

func leaseKey(platform string, accountID int64) string {
	return fmt.Sprintf("refresh:lease:%s:%d", platform, accountID)
}

// Acquire takes the lease. It returns false when another holder has it; the
// returned release func is a no-op in that case.
func (l *RefreshLease) Acquire(ctx context.Context, platform string, accountID int64) (bool, func(), error) {
	key := leaseKey(platform, accountID)
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		slog.Info(err.Error())
		return false, func() {}, err
	}
	if !ok {
		return false, func() {}, nil
	}

	release := func() {
		// The request context may already be cancelled.
		if err := l.client.Eval(context.Background(), releaseScript, []string{key}, token).Err(); err != nil {
			slog.Error("release refresh lease", "key", key, "err", err)
		}
	}
	return true, release, nil
}
