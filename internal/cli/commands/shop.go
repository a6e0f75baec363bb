package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shop-chatter/internal/chat"
	"shop-chatter/internal/shopapi"
	"shop-chatter/internal/ui"
)

var (
	searchCategory string
	searchMin      float64
	searchMax      float64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "search the catalog",
	Example: `  # Search everything
  $ shopctl search headphones

  # Narrow by category and price
  $ shopctl search "running shoes" --category Clothing --min 20 --max 120`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var buyCmd = &cobra.Command{
	Use:   "buy <product-id>",
	Short: "buy one unit of a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuy,
}

func init() {
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "Category filter (\"all\" for none)")
	searchCmd.Flags().Float64Var(&searchMin, "min", 0, "Minimum price")
	searchCmd.Flags().Float64Var(&searchMax, "max", 0, "Maximum price (defaults to MAX_PRICE)")

	searchCmd.SilenceUsage = true
	buyCmd.SilenceUsage = true
}

func runSearch(cmd *cobra.Command, args []string) error {
	sh, err := openShell()
	if err != nil {
		return err
	}
	if err := sh.requireLogin(); err != nil {
		return err
	}

	ctrl := sh.session.Chat
	ctrl.ResetConversation()
	ctrl.SetCategory(searchCategory)
	maxPrice := searchMax
	if !cmd.Flags().Changed("max") {
		maxPrice = ctrl.Filters().MaxPrice
	}
	if err := ctrl.SetPriceRange(searchMin, maxPrice); err != nil {
		ui.PrintError("invalid price range %s - %s", ui.FormatPrice(searchMin), ui.FormatPrice(maxPrice))
		return fmt.Errorf("invalid arguments")
	}

	if err := ctrl.SendMessage(cmd.Context(), strings.Join(args, " ")); err != nil {
		ui.PrintError("%v", err)
		return fmt.Errorf("search failed")
	}
	return printTurn(ctrl, "Search Failed", func() {
		fmt.Println(ui.RenderProducts(ctrl.Products()))
	})
}

func runBuy(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		ui.PrintError("invalid product id: %s", args[0])
		return fmt.Errorf("invalid arguments")
	}

	sh, err := openShell()
	if err != nil {
		return err
	}
	if err := sh.requireLogin(); err != nil {
		return err
	}

	ctrl := sh.session.Chat
	if err := ctrl.Purchase(cmd.Context(), id); err != nil {
		ui.PrintError("%v", err)
		return fmt.Errorf("purchase failed")
	}
	return printTurn(ctrl, "Purchase Failed", nil)
}

// printTurn reports the outcome of the last turn. onCommit runs after a
// successful reply has been printed.
func printTurn(ctrl *chat.Controller, failTitle string, onCommit func()) error {
	t, ok := ctrl.LastTurn()
	if !ok {
		return nil
	}
	switch t.Status {
	case chat.TurnRolledBack:
		detail := t.Reply
		if msg := shopapi.UserMessage(t.Err, ""); msg != "" {
			detail += "\n\n" + msg
		}
		ui.PrintErrorBox(failTitle, detail)
		return fmt.Errorf("%s", strings.ToLower(failTitle))
	case chat.TurnDiscarded:
		ui.PrintWarning("cancelled")
		return nil
	}
	ui.PrintSuccess("%s", t.Reply)
	if onCommit != nil {
		onCommit()
	}
	return nil
}
