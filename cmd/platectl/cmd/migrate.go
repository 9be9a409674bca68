package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Appliquer les migrations du schéma",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		sugar.Info("schema up to date")
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations appliquées")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
