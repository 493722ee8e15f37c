// Package commands implements the integrator CLI.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "integrator",
	Short: "Apartment data integration engine",
	Long: `Integrator reconciles apartment complex records from the listings
crawler and the government transaction feed into a single canonical dataset,
scoring each batch run for data quality.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env for local development; absence is fine.
		godotenv.Load()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(qualityCmd)
	rootCmd.AddCommand(migrateCmd)
}
