package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the eventmail application
var rootCmd = &cobra.Command{
	Use:   "eventmail",
	Short: "Surfaces interview and assessment emails from a Gmail inbox",
	Long: `eventmail is a small web service that scans a Gmail inbox for emails
about interviews, online assessments and meeting invitations, and serves
the relevant ones to a browser frontend as JSON.

The browser obtains a short-lived Google OAuth access token and passes it
with every API call; eventmail never stores tokens or mail content.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "eventmail version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
