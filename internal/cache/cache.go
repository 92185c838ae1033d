// Package cache memoizes assessment results in Redis. Assessments are pure,
// so identical bodies for the same metric always produce the same result.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Skufu/vitalcalc/internal/calculators"
	"github.com/Skufu/vitalcalc/internal/engine"
)

// ErrMiss is returned by Store.Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

const opTimeout = 250 * time.Millisecond

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Key is assessment:<metric>:<sha256 of the compacted body>, so whitespace
// differences share an entry. ok is false for bodies that are not JSON.
func Key(metric string, raw []byte) (key string, ok bool) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", false
	}
	sum := sha256.Sum256(buf.Bytes())
	return "assessment:" + metric + ":" + hex.EncodeToString(sum[:]), true
}

// Assessor serves results from the store and falls through to the wrapped
// assessor on a miss. Store failures are logged and never fail a request.
type Assessor struct {
	next  calculators.Assessor
	store Store
	ttl   time.Duration
	log   *zap.Logger
}

func Wrap(next calculators.Assessor, store Store, ttl time.Duration, log *zap.Logger) *Assessor {
	return &Assessor{next: next, store: store, ttl: ttl, log: log}
}

func (a *Assessor) Metric() string { return a.next.Metric() }

func (a *Assessor) AssessJSON(raw []byte) (*engine.AssessmentResult, error) {
	key, ok := Key(a.next.Metric(), raw)
	if !ok {
		return a.next.AssessJSON(raw)
	}

	if res, hit := a.lookup(key); hit {
		return res, nil
	}

	res, err := a.next.AssessJSON(raw)
	if err != nil {
		return nil, err
	}
	a.save(key, res)
	return res, nil
}

func (a *Assessor) lookup(key string) (*engine.AssessmentResult, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := a.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			a.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var res engine.AssessmentResult
	if err := json.Unmarshal(val, &res); err != nil {
		a.log.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	a.log.Debug("cache hit", zap.String("key", key))
	return &res, true
}

func (a *Assessor) save(key string, res *engine.AssessmentResult) {
	data, err := json.Marshal(res)
	if err != nil {
		a.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := a.store.Set(ctx, key, data, a.ttl); err != nil {
		a.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
