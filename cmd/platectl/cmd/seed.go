package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/account"
	accountrepo "github.com/ovaphlow/pitchfork/service-plaques-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential"
	credentialrepo "github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential/repo"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/department"
	departmentrepo "github.com/ovaphlow/pitchfork/service-plaques-go/internal/department/repo"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/database"
)

type seedAccount struct {
	account.CreateInput
	Secret string
}

// Test accounts. All of them must rotate their secret on first sign-in.
var seedAccounts = []seedAccount{
	{account.CreateInput{Matricule: "ADMIN001", Role: access.RoleAdmin, Province: "Kinshasa"}, "admin123"},
	{account.CreateInput{Matricule: "USER001", Role: access.RoleUser, Province: "Kongo-Central"}, "user123"},
	{account.CreateInput{Matricule: "USER002", Role: access.RoleUser, Province: "Kinshasa"}, "user123"},
}

var seedDepartments = []department.Input{
	{Name: "Transport Urbain", Province: "Kinshasa", Description: "Gestion du transport urbain à Kinshasa"},
	{Name: "Transport Rural", Province: "Kongo-Central", Description: "Gestion du transport rural au Kongo-Central"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Créer les comptes et départements de test",
	Long: `Crée les comptes ADMIN001, USER001 et USER002 avec leur mot de passe de
test et les départements d'exemple. Les entrées existantes sont conservées.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, dbx, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		credCfg, err := credential.ConfigFromEnv()
		if err != nil {
			return err
		}
		creds := credential.NewService(credentialrepo.NewCredentialRepo(dbx), credCfg)
		accounts := account.NewService(accountrepo.NewAccountRepo(dbx), creds, sugar)
		departments := department.NewService(departmentrepo.NewDepartmentRepo(dbx), sugar)

		out := cmd.OutOrStdout()
		for _, s := range seedAccounts {
			created, err := accounts.Seed(cmd.Context(), s.CreateInput, s.Secret)
			if err != nil {
				return fmt.Errorf("seed %s: %w", s.Matricule, err)
			}
			fmt.Fprintf(out, "%-10s %-6s %-15s %s\n", s.Matricule, s.Role, s.Province, status(created))
		}
		for _, d := range seedDepartments {
			created, err := departments.Seed(cmd.Context(), d)
			if err != nil {
				return fmt.Errorf("seed %s: %w", d.Name, err)
			}
			fmt.Fprintf(out, "%-25s %-15s %s\n", d.Name, d.Province, status(created))
		}
		return nil
	},
}

func status(created bool) string {
	if created {
		return "créé"
	}
	return "existant"
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
