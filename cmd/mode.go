package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wezaxy/dmagent/internal/availability"
	"github.com/wezaxy/dmagent/internal/config"
	"github.com/wezaxy/dmagent/internal/opstore"
)

var modeCmd = &cobra.Command{
	Use:   "mode [name]",
	Short: "Show or set the availability mode",
	Long:  "Without an argument, prints the current mode and the reply-delay policy of every mode. With one, switches to it.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMode,
}

func init() {
	rootCmd.AddCommand(modeCmd)
}

func runMode(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store := opstore.NewStore(cfg.StatePath())

	if len(args) == 0 {
		st, err := store.Load()
		if err != nil {
			return err
		}
		fmt.Printf("Current mode: %s\n\n", st.CurrentMode)
		for _, m := range availability.All() {
			p := m.Policy()
			if p.AutoReply {
				fmt.Printf("  %-10s replies after %s–%s\n", m, p.MinDelay, p.MaxDelay)
			} else if m == availability.DND {
				fmt.Printf("  %-10s drops incoming messages\n", m)
			} else {
				fmt.Printf("  %-10s queues until woken\n", m)
			}
		}
		return nil
	}

	mode, err := availability.Parse(args[0])
	if err != nil {
		return err
	}
	if err := store.Update(func(st *opstore.State) error {
		st.CurrentMode = mode.String()
		return nil
	}); err != nil {
		return err
	}
	fmt.Printf("Mode set to %s\n", mode)
	return nil
}
