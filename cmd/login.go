package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wezaxy/dmagent/internal/config"
	"github.com/wezaxy/dmagent/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Discard the stored session and log in fresh",
	RunE:  runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Instagram.Username == "" || cfg.Instagram.Password == "" {
		return fmt.Errorf("login requires instagram.username and instagram.password")
	}

	sessions, remote := makeSessionStore(cfg)
	if remote != nil {
		defer remote.Close()
	}

	ctx := context.Background()
	sessions.Invalidate(ctx)

	client := makeClient(cfg)
	proxy := ""
	if cfg.Proxy.Enabled && len(cfg.Proxy.List) > 0 {
		proxy = cfg.Proxy.List[0]
	}

	auth, err := client.Login(ctx, cfg.Instagram.Username, cfg.Instagram.Password, proxy)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := sessions.Set(ctx, session.Session{AuthToken: auth.Token, AccountID: auth.AccountID}); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}

	fmt.Printf("Logged in as account %s\n", auth.AccountID)
	fmt.Printf("Session stored at %s\n", cfg.SessionPath())
	return nil
}
