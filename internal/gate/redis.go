package gate

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds our token, so
// an expired lock taken over by another writer is never released by us.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Redis is a SET NX lock shared by all instances of the service.
type Redis struct {
	client *redis.Client
	key    string
	wait   time.Duration
	ttl    time.Duration
	poll   time.Duration
}

// NewRedis builds a redis-backed gate. The lock auto-expires after ttl in
// case a holder dies without releasing.
func NewRedis(client *redis.Client, key string, wait time.Duration) *Redis {
	if key == "" {
		key = "guestbook:write-lock"
	}
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &Redis{
		client: client,
		key:    key,
		wait:   wait,
		ttl:    wait + 30*time.Second,
		poll:   100 * time.Millisecond,
	}
}

// Acquire polls SET NX until the lock is won or the wait window elapses.
func (g *Redis) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(g.wait)

	for {
		ok, err := g.client.SetNX(ctx, g.key, token, g.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				if err := releaseScript.Run(context.Background(), g.client, []string{g.key}, token).Err(); err != nil {
					log.Printf("gate: release failed: %v", err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrBusy
		}
		select {
		case <-time.After(g.poll):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
