package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danjilab/integration-engine/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the canonical store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := storage.NewMigrationManager(db).Apply(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migrations\n", applied)
		return nil
	},
}
