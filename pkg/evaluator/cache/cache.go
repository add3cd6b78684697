// Package cache adds a Redis verdict cache in front of another
// evaluator so repeated runs of the same prompt skip re-scoring.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pinfeed/curator/pkg/evaluator"
	"github.com/pinfeed/curator/pkg/models"
)

const defaultTTL = 24 * time.Hour

// Evaluator caches verdicts keyed by prompt text and pin URL. Cache
// failures fall through to the inner evaluator; the cache is an
// optimization, never a gate.
type Evaluator struct {
	inner  evaluator.Evaluator
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewEvaluator(inner evaluator.Evaluator, redisURL string, logger *slog.Logger) (*Evaluator, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &Evaluator{
		inner:  inner,
		client: redis.NewClient(opts),
		ttl:    defaultTTL,
		logger: logger,
	}, nil
}

func (e *Evaluator) Evaluate(ctx context.Context, prompt *models.Prompt, pin *models.Pin) (*evaluator.Verdict, error) {
	key := cacheKey(prompt, pin)

	cached, err := e.client.Get(ctx, key).Result()
	if err == nil {
		var verdict evaluator.Verdict
		if err := json.Unmarshal([]byte(cached), &verdict); err == nil {
			return &verdict, nil
		}

		e.logger.WarnContext(ctx, "Discarding unreadable cached verdict", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		e.logger.WarnContext(ctx, "Verdict cache read failed", "error", err)
	}

	verdict, err := e.inner.Evaluate(ctx, prompt, pin)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(verdict); err == nil {
		if err := e.client.Set(ctx, key, data, e.ttl).Err(); err != nil {
			e.logger.WarnContext(ctx, "Verdict cache write failed", "error", err)
		}
	}

	return verdict, nil
}

func (e *Evaluator) Close() error {
	return e.client.Close()
}

func cacheKey(prompt *models.Prompt, pin *models.Pin) string {
	sum := sha256.Sum256([]byte(prompt.Text + "\x00" + pin.PinURL))

	return "curator:verdict:" + hex.EncodeToString(sum[:])
}
