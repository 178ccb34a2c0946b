package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another process is never released by us.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a SET NX PX lock shared by every process that writes the same
// indicator store.
type Locker struct {
	client *goredis.Client
	ttl    time.Duration
	owner  string
}

// NewLocker creates a locker whose locks expire after ttl.
func NewLocker(client *goredis.Client, ttl time.Duration) *Locker {
	host, _ := os.Hostname()
	return &Locker{
		client: client,
		ttl:    ttl,
		owner:  host + ":" + strconv.Itoa(os.Getpid()),
	}
}

// LockKey returns "lock:techcalc:{key}".
func LockKey(key string) string {
	return "lock:techcalc:" + key
}

// Acquire takes the lock for key without waiting. ok is false when another
// holder has it.
func (l *Locker) Acquire(ctx context.Context, key string) (release func(), ok bool, err error) {
	k := LockKey(key)
	token := l.owner + ":" + strconv.FormatInt(time.Now().UnixNano(), 36)
	ok, err = l.client.SetNX(ctx, k, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock %s: %w", k, err)
	}
	if !ok {
		return nil, false, nil
	}
	release = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.client, []string{k}, token)
	}
	return release, true, nil
}
