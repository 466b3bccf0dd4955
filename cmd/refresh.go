package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/decent-client/launcher/internal/auth"
)

var refreshForce bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the active account's Microsoft token",
	Long: `Refresh the active account's Microsoft access token from its stored
refresh token. Without --force this is a no-op while the current token is
still valid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}

		account, err := store.Active()
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("no active account; run 'decent login' first")
		}

		refresher := auth.NewRefresher(cfg.MSAClientID)
		if err := refresher.Refresh(cmd.Context(), &account.Microsoft, refreshForce); err != nil {
			return err
		}
		if err := store.Save(account); err != nil {
			return err
		}

		fmt.Printf("Tokens for %s are up to date\n", account.Username)
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "refresh even if the current token has not expired")
	rootCmd.AddCommand(refreshCmd)
}
