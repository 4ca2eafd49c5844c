package redisstore

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/escuela/core/session"
	"github.com/trezcool/escuela/storage/sessions/inmem"
)

const keyPrefix = "escuela:session:"

// Client is the subset of go-redis used by the Registry; *redis.Client implements it.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Registry persists session state in Redis so logins survive restarts.
// Sessions loaded by this process are kept live in memory, so concurrent requests of one browser
// share a single *session.Session.
type Registry struct {
	client Client
	ttl    time.Duration
	live   *inmem.Registry
}

var _ session.Registry = (*Registry)(nil)

func NewRegistry(client Client, ttl time.Duration) *Registry {
	return &Registry{client: client, ttl: ttl, live: inmem.NewRegistry(ttl)}
}

func key(id string) string { return keyPrefix + id }

func (r *Registry) Get(ctx context.Context, id string) (*session.Session, error) {
	if sess, err := r.live.Get(ctx, id); err == nil {
		return sess, nil
	}

	data, err := r.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, errors.Wrapf(mapClosed(err), "redis get session %s", id)
	}

	var st session.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrapf(err, "decoding session %s", id)
	}
	sess := session.Restore(id, st)
	if err := r.live.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (r *Registry) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s.State())
	if err != nil {
		return errors.Wrapf(err, "encoding session %s", s.ID())
	}
	if err := r.client.Set(ctx, key(s.ID()), data, r.ttl).Err(); err != nil {
		return errors.Wrapf(mapClosed(err), "redis set session %s", s.ID())
	}
	return r.live.Save(ctx, s)
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	_ = r.live.Delete(ctx, id)
	if err := r.client.Del(ctx, key(id)).Err(); err != nil {
		return errors.Wrapf(err, "redis del session %s", id)
	}
	return nil
}

// mapClosed reports a closed client as session.ErrClosed.
func mapClosed(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return session.ErrClosed
	}
	return err
}

// Run sweeps the in-memory copies until ctx is done. Redis expires its own keys.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	r.live.Run(ctx, every)
}
