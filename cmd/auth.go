package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-builder/internal/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the spreadsheet refresh token in the OS keyring",
}

var authSetTokenCmd = &cobra.Command{
	Use:   "set-token <refresh-token>",
	Short: "Store the refresh token used for the spreadsheet sink",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(args[0])
		if token == "" {
			return eris.New("refresh token is empty")
		}
		ks := auth.NewKeyringStore(cfg.Sheets.KeyringAccount)
		if err := ks.Set(token); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "refresh token stored for account %q\n", ks.Account)
		return nil
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored refresh token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ks := auth.NewKeyringStore(cfg.Sheets.KeyringAccount)
		if err := ks.Delete(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "refresh token removed for account %q\n", ks.Account)
		return nil
	},
}

func init() {
	authCmd.AddCommand(authSetTokenCmd, authClearCmd)
	rootCmd.AddCommand(authCmd)
}
