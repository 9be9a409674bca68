package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate"
)

var (
	plateProvince string
	plateDistrict string
	plateDate     string
)

var plateNumberCmd = &cobra.Command{
	Use:   "plate-number",
	Short: "Calculer un numéro de plaque",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		when := time.Now()
		if plateDate != "" {
			var err error
			if when, err = time.Parse("2006-01-02", plateDate); err != nil {
				return fmt.Errorf("--date: %w", err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), plate.GenerateNumber(plateProvince, plateDistrict, when))
		return nil
	},
}

func init() {
	plateNumberCmd.Flags().StringVar(&plateProvince, "province", "", "province du propriétaire")
	plateNumberCmd.Flags().StringVar(&plateDistrict, "district", "", "district du propriétaire")
	plateNumberCmd.Flags().StringVar(&plateDate, "date", "", "date d'immatriculation (AAAA-MM-JJ), aujourd'hui par défaut")
	_ = plateNumberCmd.MarkFlagRequired("province")
	rootCmd.AddCommand(plateNumberCmd)
}
