package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-builder/internal/extract"
	"github.com/sells-group/lead-builder/internal/persist"
)

var (
	captureBasic       bool
	captureConcurrency int
)

var captureCmd = &cobra.Command{
	Use:   "capture <url>...",
	Short: "Extract a lead from each page and save it",
	Long:  "Fetches each URL, extracts a lead, writes it to the local cache and forwards it to the configured remote. Pages that cannot be fetched or inspected are saved as basic leads.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "capture")
		if err != nil {
			return err
		}
		defer env.Close()

		outcomes := captureAll(ctx, env, args, captureBasic, captureConcurrency)
		for _, out := range outcomes {
			printOutcome(cmd.OutOrStdout(), out)
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().BoolVar(&captureBasic, "basic", false, "skip fetching and save URL-only leads")
	captureCmd.Flags().IntVar(&captureConcurrency, "concurrency", 4, "number of pages captured in parallel")
	rootCmd.AddCommand(captureCmd)
}

// captureAll captures urls with bounded parallelism. Outcomes are returned
// in input order.
func captureAll(ctx context.Context, env *appEnv, urls []string, basic bool, concurrency int) []persist.Outcome {
	if concurrency < 1 {
		concurrency = 1
	}
	outcomes := make([]persist.Outcome, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range urls {
		g.Go(func() error {
			outcomes[i] = captureOne(gctx, env, u, basic)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// captureOne fetches pageURL, extracts a lead and persists it. A fetch
// failure degrades to a basic lead.
func captureOne(ctx context.Context, env *appEnv, pageURL string, basic bool) persist.Outcome {
	var doc extract.Document
	if !basic && extract.CanInspect(pageURL) {
		loaded, err := env.Fetcher.Load(ctx, pageURL)
		if err != nil {
			zap.L().Warn("capture: fetch failed, saving basic lead",
				zap.String("url", pageURL),
				zap.Error(err),
			)
		} else {
			doc = loaded
		}
	}
	return env.Coordinator.Persist(ctx, env.Extractor.Capture(pageURL, doc))
}

func printOutcome(w io.Writer, out persist.Outcome) {
	fmt.Fprintf(w, "%s  %s\n", out.Lead.WebsiteURL, out.Message())
	if out.Err != nil {
		fmt.Fprintf(w, "  remote: %s (%s)\n", out.Err, out.Kind)
	}
}
