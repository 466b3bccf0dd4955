package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/decent-client/launcher/internal/auth"
	"github.com/decent-client/launcher/internal/config"
	"github.com/decent-client/launcher/internal/core"
)

var loginPort int

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a Microsoft account",
	Long: `Sign in with a Microsoft account and store the resulting Minecraft
identity.

The sign-in page opens in your browser; a loopback listener receives the
redirect once you have authenticated. The first account you add becomes the
active one, later accounts are added inactive.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().IntVar(&loginPort, "port", 0, "loopback port for the sign-in redirect (default from config)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	port := loginPort
	if port == 0 {
		port = cfg.CallbackPort
	}

	capture := auth.NewCapture()
	callback := auth.NewCallbackServer(capture, port)
	redirectURL, err := callback.Start(ctx)
	if err != nil {
		return err
	}
	defer callback.Stop()

	flow, err := auth.NewFlow(auth.Options{
		ClientID:     cfg.MSAClientID,
		ClientSecret: config.ClientSecret(),
		RedirectURL:  redirectURL,
	})
	if err != nil {
		return err
	}

	fmt.Println("Complete the sign-in in your browser. If it did not open, visit:")
	fmt.Println()
	fmt.Println("  " + flow.AuthURL())
	fmt.Println()
	if err := auth.OpenBrowser(flow.AuthURL()); err != nil {
		slog.Debug("could not open browser", "error", err)
	}

	code, state, err := capture.Await(ctx)
	if err != nil {
		if auth.ErrorCode(err) == auth.CodeLoginCancelled {
			fmt.Println("Sign-in cancelled.")
			return nil
		}
		return err
	}

	account, err := flow.Exchange(ctx, code, state)
	if err != nil {
		return err
	}

	store := core.NewAccountStore(cfg.DataDir)
	if err := store.Save(account); err != nil {
		return err
	}

	fmt.Printf("Signed in as %s (%s)\n", account.Username, account.UUID)
	return nil
}
