// Package registry implements the Discovery Registry's fronting: a thin
// gRPC handler over a Redis-backed record store, exactly as
// original_source/registry_server.py's register_in_redis/lookup_in_redis
// pair does, kept under the literal "mcp2:registry:" keyspace prefix.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marmos91/capfabric/pkg/capability"
	"github.com/marmos91/capfabric/pkg/rpc"
)

const keyspacePrefix = "mcp2:registry:"

func redisKeyFor(serverName string) string {
	return keyspacePrefix + serverName
}

// record is the JSON value stored per server_name.
type record struct {
	GRPCURL      string   `json:"grpc_url"`
	Capabilities []string `json:"capabilities"`
	RegisteredAt int64    `json:"registered_at"`
}

// Store wraps the Redis client backing the registry keyspace.
type Store struct {
	rdb *redis.Client
}

// NewStore builds a Store over an existing Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Register writes {grpc_url, capabilities, registered_at} under
// mcp2:registry:<server_name>.
func (s *Store) Register(ctx context.Context, serverName, grpcURL string, capabilities []string) error {
	rec := record{GRPCURL: grpcURL, Capabilities: capabilities, RegisteredAt: time.Now().Unix()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("registry: marshal record: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKeyFor(serverName), data, 0).Err(); err != nil {
		return fmt.Errorf("registry: set: %w", err)
	}
	return nil
}

// Lookup scans the registry keyspace, returning any record where at
// least one stored capability matches at least one of capFilters. Entries
// are deduplicated by server_name (a record can satisfy more than one
// filter but is only returned once).
func (s *Store) Lookup(ctx context.Context, capFilters []string) ([]rpc.Endpoint, error) {
	matches := make(map[string]rpc.Endpoint)

	iter := s.rdb.Scan(ctx, 0, keyspacePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		serverName := strings.TrimPrefix(key, keyspacePrefix)

		data, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue // entry vanished between SCAN and GET; skip it
		}

		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}

		if _, alreadyMatched := matches[serverName]; alreadyMatched {
			continue
		}

		for _, filter := range capFilters {
			if capability.MatchCapability(rec.Capabilities, filter) {
				matches[serverName] = rpc.Endpoint{
					ServerName:   serverName,
					GRPCURL:      rec.GRPCURL,
					Capabilities: rec.Capabilities,
				}
				break
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("registry: scan: %w", err)
	}

	out := make([]rpc.Endpoint, 0, len(matches))
	for _, ep := range matches {
		out = append(out, ep)
	}
	return out, nil
}
