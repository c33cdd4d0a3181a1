package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type ingestDocument struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	FileType string `json:"file_type,omitempty"`
	Category string `json:"category,omitempty"`
}

type bulkIngestRequest struct {
	Documents []ingestDocument `json:"documents"`
}

type bulkIngestResult struct {
	Ingested int `json:"ingested"`
	Results  []struct {
		DocumentID string `json:"document_id"`
		Title      string `json:"title"`
		ChunkCount int    `json:"chunk_count"`
	} `json:"results"`
}

func newIngestCmd() *cobra.Command {
	var category string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "ingest <glob>...",
		Short: "Ingest text files matching glob patterns",
		Long: `Ingest reads matching files and uploads their text to the gateway.
Patterns support ** recursion, e.g. "docs/**/*.md".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandGlobs(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no files match the given patterns")
			}

			client := newAPIClient()
			bar := progressbar.Default(int64(len(paths)), "ingesting")

			total := 0
			for start := 0; start < len(paths); start += batchSize {
				end := start + batchSize
				if end > len(paths) {
					end = len(paths)
				}

				var docs []ingestDocument
				for _, path := range paths[start:end] {
					data, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("failed to read %s: %w", path, err)
					}
					docs = append(docs, ingestDocument{
						Title:    filepath.Base(path),
						Text:     string(data),
						FileType: strings.TrimPrefix(filepath.Ext(path), "."),
						Category: category,
					})
				}

				var result bulkIngestResult
				if err := client.postJSON("/api/v1/documents/bulk", bulkIngestRequest{Documents: docs}, &result); err != nil {
					return err
				}
				total += result.Ingested
				_ = bar.Add(len(docs))
			}

			fmt.Printf("\ningested %d documents\n", total)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category tag applied to all documents")
	cmd.Flags().IntVar(&batchSize, "batch-size", 20, "documents per upload batch")
	return cmd
}

// expandGlobs resolves patterns to a deduplicated file list
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	return paths, nil
}
