package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/decent-client/launcher/internal/core"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage stored accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		summaries, err := store.Summaries()
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("No accounts stored. Run 'decent login' to add one.")
			return nil
		}
		for _, summary := range summaries {
			marker := " "
			if summary.IsActive {
				marker = "*"
			}
			obtained := time.Unix(summary.ObtainedAt, 0).Format("2006-01-02 15:04")
			fmt.Printf("%s %-16s  %s  added %s\n", marker, summary.Username, summary.UUID, obtained)
		}
		return nil
	},
}

var accountsSwitchCmd = &cobra.Command{
	Use:   "switch <uuid>",
	Short: "Make an account the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.SetActive(args[0]); err != nil {
			return err
		}
		fmt.Printf("Active account is now %s\n", args[0])
		return nil
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <uuid>",
	Short: "Remove a stored account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed account %s\n", args[0])
		return nil
	},
}

func init() {
	accountsCmd.AddCommand(accountsListCmd, accountsSwitchCmd, accountsRemoveCmd)
	rootCmd.AddCommand(accountsCmd)
}

func openStore() (*core.AccountStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return core.NewAccountStore(cfg.DataDir), nil
}
