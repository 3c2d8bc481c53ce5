// Command telegraphd runs a standalone telegraph server: an HTTP health
// endpoint plus a WebSocket echo/broadcast service, with optional
// Prometheus metrics exposition.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "telegraphd",
		Short: "Embeddable HTTP + WebSocket server daemon",
		Long: `telegraphd serves HTTP routes and WebSocket connections from a single
listening socket. Connected WebSocket clients get their text messages echoed
back; the /broadcast endpoint pushes a message to every connected client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("telegraphd %s (%s)\n", version, commit)
		},
	}
}
