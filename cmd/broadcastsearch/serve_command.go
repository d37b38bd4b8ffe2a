package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"broadcast-search/pkg/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var (
		address string
		reload  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over the scraped episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.log()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			episodes, err := ctx.loadEpisodes(runCtx)
			if err != nil {
				return err
			}

			if address == "" {
				address = cfg.Server.Address
			}
			srv := server.New(server.Config{
				Address:   address,
				Subtitles: cfg.Server.Subtitles,
				CacheSize: cfg.Server.CacheSize,
				Logger:    logger,
			}, episodes)

			if reload > 0 {
				go func() {
					ticker := time.NewTicker(reload)
					defer ticker.Stop()
					for {
						select {
						case <-runCtx.Done():
							return
						case <-ticker.C:
							episodes, err := ctx.loadEpisodes(runCtx)
							if err != nil {
								logger.Warn("episode reload failed", "error", err)
								continue
							}
							srv.SetEpisodes(episodes)
						}
					}
				}()
			}

			return srv.ListenAndServe(runCtx)
		},
	}

	cmd.Flags().StringVar(&address, "addr", "", "Listen address (default from config)")
	cmd.Flags().DurationVar(&reload, "reload", 0, "Reload snapshots at this interval (0 disables)")
	return cmd
}
