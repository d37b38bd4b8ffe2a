package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"broadcast-search/pkg/db"
	"broadcast-search/pkg/httpclient"
	"broadcast-search/pkg/scraper"
	"broadcast-search/pkg/snapshot"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var (
		date string
		days int
		loop bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the configured channel schedules and their transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.log()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			timeout, err := cfg.RequestTimeout()
			if err != nil {
				return err
			}

			store, err := db.OpenStore(runCtx, cfg.Storage, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(context.Background()) }()

			writer, err := snapshot.NewWriter(cfg.Scraper.SnapshotDir, logger)
			if err != nil {
				return err
			}

			svc, err := scraper.New(scraper.Config{
				Channels:  cfg.Scraper.Channels,
				Workers:   cfg.Scraper.Workers,
				Fetcher:   httpclient.NewClient(httpclient.ClientType(cfg.Scraper.ClientType), timeout),
				Store:     store,
				Snapshots: writer,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			if days <= 0 {
				days = cfg.Scraper.Days
			}

			if loop {
				interval, err := cfg.ScrapeInterval()
				if err != nil {
					return err
				}
				return svc.Run(runCtx, interval, days)
			}

			dates := svc.Dates(days)
			if date != "" {
				dates = []string{date}
			}

			var rows [][]string
			var scrapeErr error
			for _, d := range dates {
				reports, err := svc.Scrape(runCtx, d)
				if err != nil {
					scrapeErr = err
				}
				for _, r := range reports {
					rows = append(rows, []string{
						r.Date, r.Channel,
						strconv.Itoa(r.Entries), strconv.Itoa(r.Known), strconv.Itoa(r.Fetched),
						strconv.Itoa(r.Transcripts), strconv.Itoa(r.Failed),
					})
				}
			}

			if len(rows) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Date", "Channel", "Entries", "Known", "Fetched", "Transcripts", "Failed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
			}
			return scrapeErr
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Scrape a single day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 0, "Number of days back to scrape, today included (default from config)")
	cmd.Flags().BoolVar(&loop, "loop", false, "Keep scraping at the configured interval")
	return cmd
}
