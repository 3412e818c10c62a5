package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wezaxy/dmagent/internal/compose"
	"github.com/wezaxy/dmagent/internal/config"
	"github.com/wezaxy/dmagent/internal/dispatch"
	"github.com/wezaxy/dmagent/internal/notify"
	"github.com/wezaxy/dmagent/internal/opstore"
	"github.com/wezaxy/dmagent/internal/providers"
	"github.com/wezaxy/dmagent/internal/reaction"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the auto-responder loop",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sessions, remote := makeSessionStore(cfg)
	if remote != nil {
		defer remote.Close()
	}

	lib, err := reaction.LoadLibrary(cfg.GifLibrary)
	if err != nil {
		return fmt.Errorf("loading GIF library: %w", err)
	}

	provider := providers.NewProvider(providers.Config{
		APIKey:      cfg.AI.APIKey,
		APIBase:     cfg.AI.APIBase,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	})

	loop := dispatch.New(cfg,
		makeClient(cfg),
		sessions,
		opstore.NewStore(cfg.StatePath()),
		compose.NewComposer(provider),
		reaction.NewTrigger(lib),
		notify.NewNotifier(cfg.Admin.BotToken, cfg.Admin.ChatID),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[Run] shutting down")
		cancel()
	}()

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
