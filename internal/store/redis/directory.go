package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/portal/internal/index"
)

// DefaultMirrorTTL bounds how long a mirror outlives a dead gateway.
const DefaultMirrorTTL = 24 * time.Hour

// Store mirrors the merged port directory into Redis so other processes
// can list forwarded ports. The gateway never reads it back.
type Store struct {
	client   redis.UniversalClient
	instance string
	ttl      time.Duration
}

// NewStore creates a mirror for one gateway instance.
func NewStore(client redis.UniversalClient, instance string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultMirrorTTL
	}
	return &Store{client: client, instance: instance, ttl: ttl}
}

// Snapshot is the flattened form of a directory written to Redis.
type Snapshot struct {
	Routes    map[string]interface{}
	Sources   map[string]interface{}
	Public    []interface{}
	UpdatedAt time.Time
}

// NewSnapshot flattens dir for HSET/SADD.
func NewSnapshot(dir *index.Directory) Snapshot {
	snap := Snapshot{
		Routes:    make(map[string]interface{}),
		Sources:   make(map[string]interface{}),
		UpdatedAt: dir.BuiltAt(),
	}
	for _, r := range dir.Routes() {
		snap.Routes[r.Token] = r.Port
		snap.Sources[r.Token] = r.Source
	}
	for _, p := range dir.PublicPorts() {
		snap.Public = append(snap.Public, p)
	}
	return snap
}

// PublishDirectory replaces the mirrored directory atomically.
func (s *Store) PublishDirectory(ctx context.Context, dir *index.Directory) error {
	snap := NewSnapshot(dir)

	routes, public := RoutesKey(s.instance), PublicKey(s.instance)
	sources, updated := SourcesKey(s.instance), UpdatedAtKey(s.instance)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, routes, public, sources)
		if len(snap.Routes) > 0 {
			pipe.HSet(ctx, routes, snap.Routes)
			pipe.HSet(ctx, sources, snap.Sources)
			pipe.Expire(ctx, routes, s.ttl)
			pipe.Expire(ctx, sources, s.ttl)
		}
		if len(snap.Public) > 0 {
			pipe.SAdd(ctx, public, snap.Public...)
			pipe.Expire(ctx, public, s.ttl)
		}
		pipe.Set(ctx, updated, snap.UpdatedAt.UTC().Format(time.RFC3339), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish port directory: %w", err)
	}
	return nil
}
