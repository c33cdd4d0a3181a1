// Command ragctl is a CLI client for the retrieval gateway HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiKey    string
)

func main() {
	root := &cobra.Command{
		Use:   "ragctl",
		Short: "Client for the retrieval gateway",
		Long:  "ragctl ingests documents into a running retrieval gateway and runs queries against it.",
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "gateway base URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key sent as X-API-Key")

	root.AddCommand(newIngestCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newStatsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
