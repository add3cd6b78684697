package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/pinfeed/curator/pkg/cmd"
	"github.com/pinfeed/curator/pkg/log"
	"github.com/pinfeed/curator/pkg/reconciler"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "curator-api",
		Usage:                 "Curate pins for prompts and stream run progress",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "seed-file",
				Usage:    "Path to the pin seed catalog",
				Required: true,
				Sources:  cli.EnvVars("SEED_FILE"),
			},
			&cli.StringFlag{
				Name:    "evaluator-endpoint",
				Usage:   "Scoring service URL (term matching is used when unset)",
				Sources: cli.EnvVars("EVALUATOR_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the verdict cache (disabled when unset)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "max-pins",
				Usage:   "Maximum pins collected per prompt",
				Sources: cli.EnvVars("MAX_PINS"),
			},
			&cli.StringFlag{
				Name:    "reconcile-schedule",
				Usage:   "Cron schedule for the duplicate-status sweep",
				Sources: cli.EnvVars("RECONCILE_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Curator API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				cmd.NewCollectorFactory(command.String("seed-file"), logger),
				cmd.NewEvaluator(
					command.String("evaluator-endpoint"),
					command.String("redis-url"),
					logger,
				),
				command.Int("max-pins"),
			)

			sweeper := reconciler.NewReconciler(api.Tracker(), logger)
			if err := sweeper.Start(command.String("reconcile-schedule")); err != nil {
				return err
			}
			defer sweeper.Stop()

			err := api.Start(ctx, command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
