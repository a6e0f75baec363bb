package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"shop-chatter/internal/cli/commands"
	"shop-chatter/internal/ui"
)

func main() {
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		if errMsg := err.Error(); strings.Contains(errMsg, "unknown command") {
			ui.PrintError("%s", errMsg)
			fmt.Println("\nRun 'shopctl --help' for usage.")
		}
		os.Exit(1)
	}
}
