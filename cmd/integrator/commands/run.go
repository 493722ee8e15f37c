package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/danjilab/integration-engine/internal/integrate"
	"github.com/danjilab/integration-engine/internal/match"
	"github.com/danjilab/integration-engine/internal/quality"
	"github.com/danjilab/integration-engine/internal/storage"
	"github.com/danjilab/integration-engine/internal/validate"
)

var printReport bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one integration run over the configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := storage.NewMigrationManager(db).Apply(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		listingFeed, listingDB, err := buildListingFeed(cfg.Sources.Crawler)
		if err != nil {
			return err
		}
		if listingDB != nil {
			defer listingDB.Close()
		}
		transactionFeed, transactionDB, err := buildTransactionFeed(cfg.Sources.Government)
		if err != nil {
			return err
		}
		if transactionDB != nil {
			defer transactionDB.Close()
		}

		mappingCache, err := newCache(ctx, cfg)
		if err != nil {
			return err
		}
		defer mappingCache.Close()

		monitor, err := newMonitor(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer monitor.Close()

		pipeline := integrate.NewPipeline(integrate.Deps{
			Repos:           storage.NewRepositories(db),
			ListingFeed:     listingFeed,
			TransactionFeed: transactionFeed,
			Validator: validate.NewValidator(validate.Config{
				UnknownNameSentinel: cfg.Validation.UnknownNameSentinel,
				MinCompletionYear:   cfg.Validation.MinCompletionYear,
				MaxHouseholds:       cfg.Validation.MaxHouseholds,
			}),
			Matching: match.Config{
				CoordinateTolerance: cfg.Matching.CoordinateTolerance,
				NameThreshold:       cfg.Matching.NameThreshold,
			},
			Cache:          mappingCache,
			Monitor:        monitor,
			Logger:         logger,
			Auditor:        quality.NewAuditor(db),
			CacheTTL:       cfg.Cache.TTL,
			AlertThreshold: cfg.Quality.AlertThreshold,
		})

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("integrating"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetWriter(os.Stderr),
		)
		stop := make(chan struct{})
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					bar.Add(1)
				}
			}
		}()

		report, runErr := pipeline.Run(ctx)
		close(stop)
		bar.Finish()

		if report != nil && printReport {
			payload, _ := json.MarshalIndent(report, "", "  ")
			fmt.Println(string(payload))
		}
		if runErr != nil {
			return runErr
		}

		fmt.Printf("run %s: %d created, %d matched, %d listings, %d transactions, score %.1f\n",
			report.RunID, report.Complexes.Created, report.Complexes.Matched,
			report.Listings.Matched, report.Transactions.Matched, report.Quality.Score.Overall)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&printReport, "report", false, "print the full JSON report")
}
