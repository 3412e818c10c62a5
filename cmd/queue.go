package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wezaxy/dmagent/internal/config"
	"github.com/wezaxy/dmagent/internal/opstore"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the deferred-reply queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued messages",
	RunE:  runQueueList,
}

var queueWakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Mark every queued message ready to answer now",
	RunE:  runQueueWake,
}

var queueSkipCmd = &cobra.Command{
	Use:   "skip <index>",
	Short: "Drop one queued message without answering it",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueSkip,
}

func init() {
	queueCmd.AddCommand(queueListCmd, queueWakeCmd, queueSkipCmd)
	rootCmd.AddCommand(queueCmd)
}

func openState() (*opstore.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return opstore.NewStore(cfg.StatePath()), nil
}

func runQueueList(cmd *cobra.Command, args []string) error {
	store, err := openState()
	if err != nil {
		return err
	}
	st, err := store.Load()
	if err != nil {
		return err
	}
	if len(st.MessageQueue) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}
	for i, m := range st.MessageQueue {
		when := "awaiting wake"
		if m.ReplyAt != nil {
			when = "reply at " + m.ReplyAt.Format(time.RFC3339)
		}
		fmt.Printf("[%d] thread %s from %s (%s)\n    %s\n", i, m.ThreadID, m.Sender, when, m.Message)
	}
	return nil
}

func runQueueWake(cmd *cobra.Command, args []string) error {
	store, err := openState()
	if err != nil {
		return err
	}
	if err := store.SetAllReplyAt(time.Now()); err != nil {
		return err
	}
	fmt.Println("All queued messages marked ready")
	return nil
}

func runQueueSkip(cmd *cobra.Command, args []string) error {
	store, err := openState()
	if err != nil {
		return err
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be a number: %w", err)
	}
	removed, err := store.RemoveAt(i)
	if err != nil {
		return err
	}
	fmt.Printf("Dropped queued message for thread %s\n", removed.ThreadID)
	return nil
}
