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
	date    = "unknown"
)

const banner = `
  ┬ ┬┌─┐┬  ┬  ┬ ┬┌─┐┬ ┬
  ├─┤├─┤│  │  │││├─┤└┬┘
  ┴ ┴┴ ┴┴─┘┴─┘└┴┘┴ ┴ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "hallwayd",
		Short: "Multi-room presence and state synchronization server",
		Long: `Hallwayd keeps groups of connected clients in sync.

Clients join rooms inside sessions over WebSocket or raw TCP, share
binary key/value data objects, chat, and exchange custom messages.
Features include:

  • Sessions, rooms, and per-user data objects
  • Room master election and presence broadcasts
  • Public/private data object update policies
  • Legacy cross-domain policy file serving
  • Prometheus metrics and health endpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the hallway ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}
