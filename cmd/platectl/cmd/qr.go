package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate"
)

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Outils pour les codes QR des plaques",
}

var qrDecodeCmd = &cobra.Command{
	Use:   "decode <fichier|->",
	Short: "Lire le contenu d'un code QR (data URI)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			raw []byte
			err error
		)
		if args[0] == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		p, err := plate.DecodeDataURI(strings.TrimSpace(string(raw)))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func init() {
	qrCmd.AddCommand(qrDecodeCmd)
	rootCmd.AddCommand(qrCmd)
}
