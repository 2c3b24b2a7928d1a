package lookup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amsross/transitlambda/pkg/transit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Redis key prefix for lookup entries.
// Format: transit:lookup:<table>:<term>
const redisKeyPrefix = "transit:lookup"

// Redis is a lookup source backed by a pre-seeded Redis instance. Redis
// failures degrade to a miss so a broken cache never breaks resolution.
type Redis struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewRedis creates a Redis-backed lookup source.
func NewRedis(redisClient *redis.Client) *Redis {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Redis{
		redis:  redisClient,
		logger: log.With().Str("component", "lookup-redis").Logger(),
	}
}

// Key returns the Redis key for a (table, term) entry.
func Key(table, term string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, table, term)
}

// Operator returns the pre-seeded operator for term, if any.
func (r *Redis) Operator(ctx context.Context, term string) (*transit.Operator, bool) {
	var op transit.Operator
	if !r.get(ctx, TableOperators, term, &op) {
		return nil, false
	}
	return &op, true
}

// Stop returns the pre-seeded stop for term, if any.
func (r *Redis) Stop(ctx context.Context, term string) (*transit.Stop, bool) {
	var stop transit.Stop
	if !r.get(ctx, TableStops, term, &stop) {
		return nil, false
	}
	return &stop, true
}

func (r *Redis) get(ctx context.Context, table, term string, dest any) bool {
	data, err := r.redis.Get(ctx, Key(table, term)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn().Err(err).
				Str("table", table).
				Str("term", term).
				Msg("Lookup read failed, treating as miss")
		}
		recordLookup(table, false)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Warn().Err(err).
			Str("table", table).
			Str("term", term).
			Msg("Corrupt lookup entry, treating as miss")
		recordLookup(table, false)
		return false
	}

	recordLookup(table, true)
	return true
}

// SeedOperator writes an operator entry. Seeding happens out of band; the
// pipeline itself never writes.
func (r *Redis) SeedOperator(ctx context.Context, term string, op transit.Operator) error {
	return r.seed(ctx, TableOperators, term, op)
}

// SeedStop writes a stop entry.
func (r *Redis) SeedStop(ctx context.Context, term string, stop transit.Stop) error {
	return r.seed(ctx, TableStops, term, stop)
}

func (r *Redis) seed(ctx context.Context, table, term string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal lookup entry: %w", err)
	}
	if err := r.redis.Set(ctx, Key(table, term), data, 0).Err(); err != nil {
		return fmt.Errorf("seed lookup entry: %w", err)
	}
	return nil
}
