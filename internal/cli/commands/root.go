package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"shop-chatter/internal/ui"
)

const version = "0.1.0"

var (
	serverURL   string
	sessionPath string
	verbose     bool
)

// rootCmd is the root command
var rootCmd = &cobra.Command{
	Use:     "shopctl",
	Short:   "Shop assistant CLI",
	Version: version,
	Long: `A command-line client for the shop backend. Search the catalog, buy
products and chat with the shopping assistant from your terminal.`,
	Example: `  # Log in (prompts for the password)
  $ shopctl login -u alice

  # Search for laptops under $800
  $ shopctl search laptop --category Electronics --max 800

  # Buy product 3
  $ shopctl buy 3

  # Start interactive chat
  $ shopctl chat`,
}

// Execute executes the root command. Ctrl+C cancels in-flight requests.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SetVersionTemplate(formatVersion())
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "Backend URL (overrides BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", "", "Session file (overrides SESSION_FILE_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests to stderr")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(buyCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statsCmd)

	rootCmd.SetUsageTemplate(usageTemplate())
	rootCmd.SetHelpTemplate(usageTemplate())
}

func usageTemplate() string {
	return `{{if .Long}}{{.Long}}

{{end}}` + ui.Styles.Bold.Render("USAGE") + `
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasExample}}` + ui.Styles.Bold.Render("EXAMPLES") + `
{{.Example}}

{{end}}{{if .HasAvailableSubCommands}}` + ui.Styles.Bold.Render("COMMANDS") + `{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableLocalFlags}}` + ui.Styles.Bold.Render("OPTIONS") + `
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}` + ui.Styles.Bold.Render("GLOBAL OPTIONS") + `
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
}

func formatVersion() string {
	return fmt.Sprintf("shopctl version %s\n", version)
}
