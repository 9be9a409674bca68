package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

var (
	envFile string
	sugar   *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "platectl",
	Short: "Administration du registre des plaques",
	Long: `platectl prépare la base du registre des plaques (migrations, comptes
initiaux) et expose hors ligne le calcul des numéros et la lecture des codes QR.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	sugar = lg.Sugar()
	return nil
}

// openDB connects with the DATABASE_* environment. The caller closes it.
func openDB() (*sql.DB, *sqlx.DB, error) {
	cfg, err := database.ConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, sqlx.NewDb(db, "postgres"), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "fichier .env à charger")
}
