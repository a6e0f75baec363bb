package ui

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
)

func PrintSuccess(format string, args ...interface{}) {
	successColor.Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

func PrintError(format string, args ...interface{}) {
	errorColor.Printf("✗ %s\n", fmt.Sprintf(format, args...))
}

func PrintWarning(format string, args ...interface{}) {
	warningColor.Printf("⚠ %s\n", fmt.Sprintf(format, args...))
}

func PrintInfo(format string, args ...interface{}) {
	infoColor.Printf("ℹ %s\n", fmt.Sprintf(format, args...))
}

func PrintBold(format string, args ...interface{}) {
	boldColor.Println(fmt.Sprintf(format, args...))
}

// PrintSuccessBox prints a titled message in a green box.
func PrintSuccessBox(title, content string) {
	fmt.Println(Styles.SuccessBox.Render(fmt.Sprintf("%s\n\n%s", successColor.Sprint(title), content)))
}

// PrintErrorBox prints a titled message in a red box.
func PrintErrorBox(title, content string) {
	fmt.Println(Styles.ErrorBox.Render(fmt.Sprintf("%s\n\n%s", errorColor.Sprint(title), content)))
}
