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

func main() {
	rootCmd := &cobra.Command{
		Use:   "duplexio",
		Short: "Event-based messaging server with dependency injection",
		Long: `duplexio serves event-based messaging over persistent WebSocket
connections. Handlers are declared once at startup as compiled
dispatch plans: positional argument schemas, injected context
markers, and a dependency graph resolved per request.

The bundled application is a file relay: publishers announce
transfers, subscribers claim them, and chunks flow through
per-transfer rooms with chunk-level confirmation.`,
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
