package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LadyD56/vectara-ingest/internal/pipeline"
)

var urlMeta []string

var indexURLCmd = &cobra.Command{
	Use:   "index-url URL...",
	Short: "Fetch, extract and index one or more URLs",
	Long: `Fetch each URL with a headless browser, extract its text and index the
result. URLs that serve a downloadable document (PDF, Markdown, reStructuredText
or Jupyter notebook) are downloaded and extracted by type instead.

Examples:
  # Index a single page
  vectara-ingest index-url https://example.com/docs/intro

  # Index several URLs with shared metadata
  vectara-ingest index-url --meta team=docs https://example.com/a https://example.com/b.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexURL,
}

func init() {
	rootCmd.AddCommand(indexURLCmd)

	indexURLCmd.Flags().StringArrayVar(&urlMeta, "meta", nil, "document metadata as key=value (repeatable)")
}

func runIndexURL(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metadata, err := parseMetadata(urlMeta)
	if err != nil {
		return err
	}

	p, err := pipeline.New(GetConfig())
	if err != nil {
		return err
	}
	defer p.Close()

	var failed int
	for _, url := range args {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.IndexURL(ctx, url, metadata) {
			fmt.Printf("ok      %s\n", url)
		} else {
			fmt.Printf("failed  %s\n", url)
			failed++
		}
	}

	slog.Info("indexing finished", "total", len(args), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(args))
	}
	return nil
}
