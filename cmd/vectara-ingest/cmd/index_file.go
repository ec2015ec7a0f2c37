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

var (
	fileMeta []string
	fileURI  string
)

var indexFileCmd = &cobra.Command{
	Use:   "index-file PATH...",
	Short: "Upload or index one or more local files",
	Long: `Upload each file's raw bytes to the corpus. PDFs above the configured size
limit are extracted locally and indexed as text segments instead. With table
summarization enabled, a PDF's tables are also indexed as a companion document.

Examples:
  # Upload a file
  vectara-ingest index-file report.pdf

  # Upload under an explicit document URI with metadata
  vectara-ingest index-file --uri doc://reports/2026 --meta year=2026 report.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexFile,
}

func init() {
	rootCmd.AddCommand(indexFileCmd)

	indexFileCmd.Flags().StringArrayVar(&fileMeta, "meta", nil, "document metadata as key=value (repeatable)")
	indexFileCmd.Flags().StringVar(&fileURI, "uri", "", "document URI override (defaults to the file path)")
}

func runIndexFile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if fileURI != "" && len(args) > 1 {
		return fmt.Errorf("--uri can only be used with a single file")
	}

	metadata, err := parseMetadata(fileMeta)
	if err != nil {
		return err
	}

	p, err := pipeline.New(GetConfig())
	if err != nil {
		return err
	}
	defer p.Close()

	var failed int
	for _, path := range args {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.IndexFile(ctx, path, fileURI, metadata) {
			fmt.Printf("ok      %s\n", path)
		} else {
			fmt.Printf("failed  %s\n", path)
			failed++
		}
	}

	slog.Info("indexing finished", "total", len(args), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
