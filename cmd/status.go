package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wezaxy/dmagent/internal/config"
	"github.com/wezaxy/dmagent/internal/opstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := opstore.NewStore(cfg.StatePath()).Load()
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	fmt.Println("🤖 dmagent Status")
	fmt.Println()
	fmt.Printf("Config: %s\n", config.GetConfigPath())
	fmt.Printf("Data dir: %s\n", cfg.DataDir)
	fmt.Printf("Model: %s\n", cfg.AI.Model)
	fmt.Printf("Language: %s\n", cfg.Language)
	fmt.Println()
	fmt.Printf("Mode: %s\n", st.CurrentMode)
	fmt.Printf("Persona: %s\n", st.ActivePersona)
	fmt.Printf("GIF reactions: %v (chance %.2f)\n", st.GifEnabled, st.GifChance)
	fmt.Printf("Queued messages: %d\n", len(st.MessageQueue))
	fmt.Printf("Skipped threads: %d\n", len(st.SkippedThreads))
	fmt.Printf("Messages sent: %d\n", st.MessagesSent)
	if st.StartedAt != nil {
		fmt.Printf("Running since: %s (%s)\n",
			st.StartedAt.Format(time.RFC3339), time.Since(*st.StartedAt).Round(time.Second))
	}

	sessions, remote := makeSessionStore(cfg)
	if remote != nil {
		defer remote.Close()
	}
	if sess, src, ok := sessions.Get(context.Background()); ok {
		fmt.Printf("Session: account %s (source: %s)\n", sess.AccountID, src)
	} else {
		fmt.Println("Session: none (run `dmagent login`)")
	}
	return nil
}
