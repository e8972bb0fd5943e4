package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-builder/internal/ingest"
)

var (
	scanQuery  string
	scanMax    int
	scanDryRun bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Search the web and append performance rows for new sites",
	Long:  "Runs the configured search query, reduces each result to its site root, skips sites already present in the row store, and appends one performance row per new site.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("scan"); err != nil {
			return err
		}

		query := cfg.Scan.Query
		if scanQuery != "" {
			query = scanQuery
		}
		maxResults := cfg.Scan.MaxResults
		if scanMax > 0 {
			maxResults = scanMax
		}

		ing, err := initIngestor(ctx)
		if err != nil {
			return err
		}

		if scanDryRun {
			items, err := ing.Preview(ctx, query, maxResults)
			if err != nil {
				return err
			}
			printPreview(cmd.OutOrStdout(), items)
			return nil
		}

		zap.L().Info("scan: starting",
			zap.String("query", query),
			zap.Int("max_results", maxResults),
		)
		res, err := ing.Run(ctx, query, maxResults)
		if err != nil {
			return err
		}
		printScanResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanQuery, "query", "", "search query (default from scan.query)")
	scanCmd.Flags().IntVar(&scanMax, "max", 0, "maximum search results to collect (default from scan.max_results)")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "list what would be processed without measuring or writing rows")
	rootCmd.AddCommand(scanCmd)
}

func printScanResult(w io.Writer, res ingest.Result) {
	fmt.Fprintf(w, "collected: %d\nprocessed: %d\nskipped:   %d\nerrors:    %d\n",
		res.Collected, res.Processed, res.Skipped, res.Errors)
}

func printPreview(w io.Writer, items []ingest.PreviewItem) {
	var fresh int
	for _, it := range items {
		status := "new"
		switch {
		case it.Invalid:
			status = "invalid"
		case it.Duplicate:
			status = "duplicate"
		default:
			fresh++
		}
		target := it.BaseURL
		if target == "" {
			target = it.URL
		}
		fmt.Fprintf(w, "%-9s  %s\n", status, target)
	}
	fmt.Fprintf(w, "\n%d of %d results would be processed\n", fresh, len(items))
}
