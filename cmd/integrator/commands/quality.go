package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danjilab/integration-engine/internal/quality"
	"github.com/danjilab/integration-engine/internal/storage"
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Run the structural quality audit against the stored dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := storage.NewMigrationManager(db).Apply(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		report, err := quality.NewAuditor(db).Run(ctx)
		if err != nil {
			return err
		}

		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(payload))

		if report.TotalDefects() > 0 {
			return fmt.Errorf("audit found %d defects", report.TotalDefects())
		}
		return nil
	},
}
