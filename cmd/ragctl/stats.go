package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type statsResult struct {
	TotalVectors   int    `json:"total_vectors"`
	Dimension      int    `json:"dimension"`
	EstimatedBytes int64  `json:"estimated_bytes"`
	DocumentCount  int    `json:"document_count"`
	EmbeddingModel string `json:"embedding_model"`
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show vector store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()

			var stats statsResult
			if err := client.getJSON("/api/v1/stats", &stats); err != nil {
				return err
			}

			fmt.Printf("documents:       %d\n", stats.DocumentCount)
			fmt.Printf("vectors:         %d\n", stats.TotalVectors)
			fmt.Printf("dimension:       %d\n", stats.Dimension)
			fmt.Printf("estimated bytes: %d\n", stats.EstimatedBytes)
			fmt.Printf("embedding model: %s\n", stats.EmbeddingModel)
			return nil
		},
	}
}
