package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"klinehub/internal/domain"
)

// Compile-time interface checks.
var _ ConfigStore = (*RedisStore)(nil)
var _ SignalStore = (*RedisStore)(nil)

// Key layout: config:{symbol} holds the threshold snapshot as a JSON string,
// signals:{symbol} is a list of JSON-encoded signal events in append order.
func configKey(symbol string) string { return "config:" + symbol }
func signalKey(symbol string) string { return "signals:" + symbol }

// RedisStore implements ConfigStore and SignalStore against Redis.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisStore connects to the Redis instance at the given URL and verifies
// the connection.
func NewRedisStore(url, password string, log *slog.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if password != "" {
		opt.Password = password
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{
		client: client,
		log:    log.With("component", "kvstore"),
	}, nil
}

// Thresholds fetches the per-symbol configuration snapshot. A missing key is
// not an error: the caller receives nil and presentation renders explicit
// placeholders.
func (s *RedisStore) Thresholds(ctx context.Context, symbol string) (*domain.Thresholds, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, configKey(symbol)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis GET %s: %w", configKey(symbol), err)
	}

	var th domain.Thresholds
	if err := json.Unmarshal(raw, &th); err != nil {
		return nil, fmt.Errorf("decoding thresholds for %s: %w", symbol, err)
	}
	return &th, nil
}

// SaveThresholds writes the per-symbol configuration snapshot.
func (s *RedisStore) SaveThresholds(ctx context.Context, symbol string, th *domain.Thresholds) error {
	data, err := json.Marshal(th)
	if err != nil {
		return fmt.Errorf("encoding thresholds for %s: %w", symbol, err)
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	if err := s.client.Set(ctx, configKey(symbol), data, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", configKey(symbol), err)
	}
	return nil
}

// Signals fetches the full signal log for a symbol, ascending by time. Rows
// that fail to decode are skipped and logged rather than failing the whole
// read.
func (s *RedisStore) Signals(ctx context.Context, symbol string) ([]domain.SignalEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	rows, err := s.client.LRange(ctx, signalKey(symbol), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis LRANGE %s: %w", signalKey(symbol), err)
	}

	events := make([]domain.SignalEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := DecodeSignal([]byte(row))
		if err != nil {
			s.log.Warn("skipping malformed signal row", "symbol", symbol, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// AppendSignal appends one signal event to the symbol's log.
func (s *RedisStore) AppendSignal(ctx context.Context, ev domain.SignalEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding signal: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	if err := s.client.RPush(ctx, signalKey(ev.Symbol), data).Err(); err != nil {
		return fmt.Errorf("redis RPUSH %s: %w", signalKey(ev.Symbol), err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
