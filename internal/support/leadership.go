package support

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLeadershipTTL = 45 * time.Second
	leaderRetryDelay     = time.Second
	leaderOpTimeout      = 5 * time.Second
)

var (
	leaderCounter atomic.Uint64

	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)
)

// RunWithLeader holds a redis leadership lock on key and invokes run while
// the lock is held. run receives a context that is cancelled when leadership
// is lost or ctx is done. When run returns the lock is released and
// acquisition starts over, so a replica picks up the work if this instance
// stops renewing.
func RunWithLeader(ctx context.Context, client *redis.Client, key string, ttl time.Duration, run func(context.Context)) error {
	if run == nil {
		return errors.New("support: leader run function cannot be nil")
	}
	if client == nil {
		return errors.New("support: leader lock requires a redis client")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ttl <= 0 {
		ttl = DefaultLeadershipTTL
	}

	value := fmt.Sprintf("%s-%d-%d-%d", hostname(), os.Getpid(), time.Now().UnixNano(), leaderCounter.Add(1))

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ok, err := client.SetNX(ctx, key, value, ttl).Result()
		if err != nil && ctx.Err() == nil {
			log.Warn("leader lock: setnx failed", "key", key, "error", err)
		}
		if !ok || err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(leaderRetryDelay):
				continue
			}
		}

		log.Debug("leader lock: acquired", "key", key)
		leaderCtx, cancel := context.WithCancel(ctx)
		stopRenew := make(chan struct{})
		go renewLoop(leaderCtx, cancel, client, key, value, ttl, stopRenew)

		run(leaderCtx)

		close(stopRenew)
		cancel()
		releaseLock(client, key, value)
		log.Debug("leader lock: released", "key", key)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(leaderRetryDelay):
		}
	}
}

func renewLoop(ctx context.Context, cancel context.CancelFunc, client *redis.Client, key, value string, ttl time.Duration, stop <-chan struct{}) {
	interval := ttl / 3
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := renewLock(client, key, value, ttl); err != nil {
				log.Warn("leader lock: renewal failed", "key", key, "error", err)
				cancel()
				return
			}
		}
	}
}

func renewLock(client *redis.Client, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), leaderOpTimeout)
	defer cancel()

	res, err := renewScript.Run(ctx, client, []string{key}, value, ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if updated, ok := res.(int64); ok && updated == 0 {
		return errors.New("lock lost")
	}
	return nil
}

func releaseLock(client *redis.Client, key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), leaderOpTimeout)
	defer cancel()

	if _, err := releaseScript.Run(ctx, client, []string{key}, value).Result(); err != nil && !errors.Is(err, redis.Nil) {
		log.Warn("leader lock: release failed", "key", key, "error", err)
	}
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
