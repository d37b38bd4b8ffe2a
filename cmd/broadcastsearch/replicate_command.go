package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"broadcast-search/pkg/config"
	"broadcast-search/pkg/db"
	"broadcast-search/pkg/replication"
)

func newReplicateCommand(ctx *commandContext) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "replicate",
		Short: "Copy episodes from MongoDB into a SQL database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.log()
			runCtx := cmd.Context()

			if cfg.Storage.MongoURI == "" {
				return errors.New("storage.mongo_uri is required as the replication source")
			}

			mongo := db.NewClient(cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection)
			if err := mongo.Connect(runCtx); err != nil {
				return fmt.Errorf("connect to mongo: %w", err)
			}
			defer func() { _ = mongo.Close(context.Background()) }()
			if n, err := mongo.CountEpisodes(runCtx); err == nil {
				logger.Info("replication source ready", "episodes", n)
			}

			targetCfg := cfg.Storage
			targetCfg.Backend = target
			table, err := db.OpenSQL(runCtx, targetCfg)
			if err != nil {
				return err
			}
			defer func() { _ = table.Close(context.Background()) }()

			replicator, err := replication.NewReplicator(replication.Config{
				Source: mongo,
				Target: table,
				Logger: logger,
			})
			if err != nil {
				return err
			}

			stats, err := replicator.ReplicateEpisodes(runCtx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replicated %d episodes (%d new) to %s\n", stats.Processed, stats.Inserted, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "to", config.BackendPostgres, "Target backend: postgres, supabase or sqlite")
	return cmd
}
