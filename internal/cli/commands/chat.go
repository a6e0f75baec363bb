package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"shop-chatter/internal/tui"
	"shop-chatter/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "start an interactive chat with the shop assistant",
	Long: `Start an interactive chat with the shop assistant.

Type what you are looking for and press Enter. Commands:
  /category NAME   filter by category ("all" clears it)
  /price MIN MAX   filter by price
  /buy ID          buy a product from the current results
  /reset           start over
  /history         reload the stored conversation`,
	Example: `  # Start interactive chat
  $ shopctl chat

  # Keyboard controls:
  • Enter sends, Up/Down scroll, Esc quits`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.SilenceUsage = true
}

func runChat(cmd *cobra.Command, args []string) error {
	sh, err := openShell()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if !sh.session.Resume(ctx) {
		ui.PrintError("not logged in")
		fmt.Println("\nRun 'shopctl login' to authenticate.")
		return fmt.Errorf("authentication required")
	}

	if err := tui.Run(ctx, sh.session.Chat, sh.session.Auth.DisplayName(), sh.cfg.Categories); err != nil {
		return fmt.Errorf("failed to run chat TUI: %w", err)
	}
	return nil
}
