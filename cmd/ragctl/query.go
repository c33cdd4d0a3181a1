package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type queryRequest struct {
	Text        string `json:"text"`
	TopK        int    `json:"top_k,omitempty"`
	TitleFilter string `json:"title_filter,omitempty"`
}

type queryResult struct {
	Results []struct {
		Score    float64 `json:"score"`
		Rank     int     `json:"rank"`
		Title    string  `json:"title"`
		Text     string  `json:"text"`
		Ordinal  int     `json:"ordinal"`
		Category string  `json:"category,omitempty"`
	} `json:"results"`
	Redacted bool  `json:"redacted"`
	TotalMS  int64 `json:"total_ms"`
}

func newQueryCmd() *cobra.Command {
	var topK int
	var titleFilter string

	cmd := &cobra.Command{
		Use:   "query <text>...",
		Short: "Run a retrieval query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()

			var result queryResult
			err := client.postJSON("/api/v1/query", queryRequest{
				Text:        strings.Join(args, " "),
				TopK:        topK,
				TitleFilter: titleFilter,
			}, &result)
			if err != nil {
				return err
			}

			if len(result.Results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for _, hit := range result.Results {
				fmt.Printf("%2d. [%.4f] %s #%d\n", hit.Rank, hit.Score, hit.Title, hit.Ordinal)
				fmt.Printf("    %s\n\n", condense(hit.Text, 300))
			}
			if result.Redacted {
				fmt.Println("note: sensitive content was redacted from the results")
			}
			fmt.Printf("%d results in %dms\n", len(result.Results), result.TotalMS)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results (0 uses the server default)")
	cmd.Flags().StringVar(&titleFilter, "title", "", "restrict results to one document title")
	return cmd
}

// condense flattens whitespace and truncates for terminal display
func condense(s string, maxLen int) string {
	flat := strings.Join(strings.Fields(s), " ")
	if len(flat) <= maxLen {
		return flat
	}
	return flat[:maxLen] + "..."
}
