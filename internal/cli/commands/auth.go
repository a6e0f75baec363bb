package commands

import (
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"shop-chatter/internal/auth"
	"shop-chatter/internal/shopapi"
	"shop-chatter/internal/ui"
)

var username string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "log in to the shop",
	Long: `Log in to the shop backend and keep the session locally.

The token is stored in the session file (SESSION_FILE_PATH) and sent with
every later command until it expires or you log out.`,
	Example: `  # Prompt for username and password
  $ shopctl login

  # Log in as alice against another backend
  $ shopctl login -u alice -s http://shop.example.com:5000`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "create a shop account",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "show the logged in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&username, "username", "u", "", "Username for authentication")
	registerCmd.Flags().StringVarP(&username, "username", "u", "", "Username to register")

	for _, c := range []*cobra.Command{loginCmd, registerCmd, logoutCmd, whoamiCmd} {
		c.SilenceUsage = true
	}
}

func askCredentials(confirm bool) (string, string, error) {
	user := username
	if user == "" {
		prompt := &survey.Input{Message: "Username:"}
		if err := survey.AskOne(prompt, &user, survey.WithValidator(survey.Required)); err != nil {
			return "", "", err
		}
	}

	var password string
	if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password, survey.WithValidator(survey.Required)); err != nil {
		return "", "", err
	}
	if confirm {
		var again string
		if err := survey.AskOne(&survey.Password{Message: "Repeat password:"}, &again); err != nil {
			return "", "", err
		}
		if again != password {
			return "", "", fmt.Errorf("passwords do not match")
		}
	}
	return user, password, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	sh, err := openShell()
	if err != nil {
		return err
	}

	user, password, err := askCredentials(false)
	if err != nil {
		ui.PrintError("failed to read credentials: %v", err)
		return fmt.Errorf("input failed")
	}

	ui.PrintInfo("Connecting to %s...", sh.cfg.BackendURL)
	sess, err := sh.session.Login(cmd.Context(), user, password)
	if err != nil {
		ui.PrintErrorBox("Login Failed", shopapi.UserMessage(err, err.Error()))
		return fmt.Errorf("authentication failed")
	}

	ui.PrintSuccessBox("✓ Login Successful", fmt.Sprintf(`Username:       %s
Token expires:  %s
Session saved:  %s`,
		sess.Username,
		expiryText(sess.Token),
		sh.store.Path(),
	))

	fmt.Println()
	ui.PrintInfo("You can now use the following commands:")
	ui.PrintBold("  shopctl search <query>   # Search the catalog")
	ui.PrintBold("  shopctl chat             # Talk to the assistant")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	sh, err := openShell()
	if err != nil {
		return err
	}

	user, password, err := askCredentials(true)
	if err != nil {
		ui.PrintError("failed to read credentials: %v", err)
		return fmt.Errorf("input failed")
	}

	msg, err := sh.session.Auth.Register(cmd.Context(), user, password)
	if err != nil {
		ui.PrintErrorBox("Registration Failed", shopapi.UserMessage(err, err.Error()))
		return fmt.Errorf("registration failed")
	}
	ui.PrintSuccess("%s", msg)
	fmt.Printf("\nRun 'shopctl login -u %s' to log in.\n", user)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	sh, err := openShell()
	if err != nil {
		return err
	}
	if _, ok := sh.session.Auth.Restore(); !ok {
		ui.PrintWarning("not logged in")
		return nil
	}
	name := sh.session.Auth.DisplayName()
	if err := sh.session.Logout(); err != nil {
		ui.PrintError("failed to clear session: %v", err)
		return fmt.Errorf("logout failed")
	}
	ui.PrintSuccess("Logged out %s", name)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	sh, err := openShell()
	if err != nil {
		return err
	}
	if err := sh.requireLogin(); err != nil {
		return err
	}
	sess, _ := sh.session.Auth.Current()
	ui.PrintBold("%s", sess.Username)
	fmt.Printf("Server:         %s\n", sh.cfg.BackendURL)
	fmt.Printf("Token expires:  %s\n", expiryText(sess.Token))
	return nil
}

func expiryText(token string) string {
	exp, ok := auth.TokenExpiry(token)
	if !ok {
		return "unknown"
	}
	return exp.Local().Format(time.RFC1123)
}
