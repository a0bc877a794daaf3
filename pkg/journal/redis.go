package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/util"
)

// stateRetention is how long a run's router states are kept after the
// last update.
const stateRetention = 7 * 24 * time.Hour

// acquireLockScript atomically takes the run lock.
// Returns 1 on success, 0 if already held.
var acquireLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2], "ttl", ARGV[3])
redis.call("EXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseLockScript releases the run lock if ARGV[1] holds it.
// Returns 1 on success, 0 on holder mismatch, -1 if there is no lock.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// Redis is a Journal stored in Redis as two hashes per run:
// NEWTBOOT_LOCK|<run> (holder, acquired, ttl) and NEWTBOOT_STATE|<run>
// (router -> JSON state record).
type Redis struct {
	client *redis.Client
	run    string
}

// NewRedis connects to addr, either host:port or a redis:// URL.
func NewRedis(ctx context.Context, addr, run string) (*Redis, error) {
	opts, err := parseAddr(addr)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("journal: connect %s: %w", addr, err)
	}
	return &Redis{client: client, run: run}, nil
}

func parseAddr(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("journal: parse %s: %w", addr, err)
		}
		return opts, nil
	}
	if addr == "" {
		return nil, fmt.Errorf("journal: empty address")
	}
	return &redis.Options{Addr: addr}, nil
}

func (r *Redis) lockKey() string  { return "NEWTBOOT_LOCK|" + r.run }
func (r *Redis) stateKey() string { return "NEWTBOOT_STATE|" + r.run }

// Acquire takes the run lock. Returns util.ErrLocked if it is held.
func (r *Redis) Acquire(ctx context.Context, holder string, ttl time.Duration) error {
	now := time.Now().UTC().Format(time.RFC3339)
	secs := int(ttl.Seconds())
	if secs < 1 {
		secs = 1
	}

	result, err := acquireLockScript.Run(ctx, r.client, []string{r.lockKey()},
		holder, now, strconv.Itoa(secs)).Int()
	if err != nil {
		return fmt.Errorf("journal: acquiring lock for %s: %w", r.run, err)
	}
	if result == 0 {
		return fmt.Errorf("%w: %s", util.ErrLocked, r.run)
	}
	return nil
}

// Release drops the run lock. A lock that already expired is not an error.
func (r *Redis) Release(ctx context.Context, holder string) error {
	result, err := releaseLockScript.Run(ctx, r.client, []string{r.lockKey()}, holder).Int()
	if err != nil {
		return fmt.Errorf("journal: releasing lock for %s: %w", r.run, err)
	}
	if result == 0 {
		return fmt.Errorf("journal: lock holder mismatch for %s", r.run)
	}
	return nil
}

// Record stores router's state and refreshes the state key's retention.
func (r *Redis) Record(ctx context.Context, router string, state device.State) error {
	data, err := json.Marshal(RouterState{Router: router, State: state.String(), Updated: time.Now().UTC()})
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.stateKey(), router, data)
	pipe.Expire(ctx, r.stateKey(), stateRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("journal: record %s: %w", router, err)
	}
	return nil
}

// Status reads the lock and every recorded router state.
func (r *Redis) Status(ctx context.Context) (*Status, error) {
	st := &Status{Run: r.run}

	lock, err := r.client.HGetAll(ctx, r.lockKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("journal: read lock: %w", err)
	}
	if len(lock) > 0 {
		info := &LockInfo{Holder: lock["holder"]}
		if t, err := time.Parse(time.RFC3339, lock["acquired"]); err == nil {
			info.Acquired = t
		}
		if secs, err := strconv.Atoi(lock["ttl"]); err == nil {
			info.TTL = time.Duration(secs) * time.Second
		}
		st.Lock = info
	}

	states, err := r.client.HGetAll(ctx, r.stateKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("journal: read states: %w", err)
	}
	for router, raw := range states {
		var rs RouterState
		if err := json.Unmarshal([]byte(raw), &rs); err != nil {
			util.WithRouter(router).Warnf("Skipping unreadable journal entry: %v", err)
			continue
		}
		rs.Router = router
		st.Routers = append(st.Routers, rs)
	}
	sortRouters(st.Routers)
	return st, nil
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
