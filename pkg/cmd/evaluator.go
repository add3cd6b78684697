package cmd

import (
	"fmt"
	"log/slog"

	"github.com/pinfeed/curator/pkg/collector"
	"github.com/pinfeed/curator/pkg/collector/static"
	"github.com/pinfeed/curator/pkg/evaluator"
	"github.com/pinfeed/curator/pkg/evaluator/cache"
	"github.com/pinfeed/curator/pkg/evaluator/lexical"
	"github.com/pinfeed/curator/pkg/evaluator/remote"
)

// NewEvaluator builds the scoring chain: the remote service when an
// endpoint is configured, term matching otherwise, with an optional
// Redis verdict cache in front.
func NewEvaluator(endpoint, redisURL string, logger *slog.Logger) evaluator.Evaluator {
	var eval evaluator.Evaluator

	if endpoint != "" {
		eval = remote.NewEvaluator(endpoint, logger)
	} else {
		eval = lexical.NewEvaluator()
	}

	if redisURL == "" {
		return eval
	}

	cached, err := cache.NewEvaluator(eval, redisURL, logger)
	if err != nil {
		panic(fmt.Errorf("failed to initialize verdict cache: %w", err))
	}

	return cached
}

// NewCollectorFactory builds collectors for the configured source.
func NewCollectorFactory(seedFile string, logger *slog.Logger) collector.Factory {
	return static.NewFactory(seedFile, logger)
}
