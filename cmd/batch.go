package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Extract every text document in a directory",
	Long: `Extract structured CRE data from every .txt file in a directory.

Documents are processed concurrently up to batch.max_concurrent_docs. Each
record is written next to its source as <name>.json; individual failures are
logged and do not abort the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().String("output-dir", "", "directory for result JSON files (default: alongside sources)")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := args[0]
	outputDir, _ := cmd.Flags().GetString("output-dir")
	if outputDir == "" {
		outputDir = dir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return eris.Wrapf(err, "batch: create output dir %s", outputDir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return eris.Wrapf(err, "batch: read dir %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".txt") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		zap.L().Info("no .txt documents found", zap.String("dir", dir))
		return nil
	}

	engine, err := buildEngine()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("starting batch",
		zap.Int("documents", len(paths)),
		zap.Int("concurrency", cfg.Batch.MaxConcurrentDocs),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Batch.MaxConcurrentDocs)

	var succeeded, failed atomic.Int64

	for _, path := range paths {
		g.Go(func() error {
			docLog := log.With(zap.String("document", filepath.Base(path)))

			doc, err := loadDocument(path)
			if err != nil {
				failed.Add(1)
				docLog.Error("load failed", zap.Error(err))
				return nil
			}

			rec, err := engine.Extract(gctx, doc)
			if err != nil {
				failed.Add(1)
				docLog.Error("extraction failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			outPath := filepath.Join(outputDir, base+".json")
			if err := writeRecord(rec, outPath); err != nil {
				failed.Add(1)
				docLog.Error("write failed", zap.Error(err))
				return nil
			}

			succeeded.Add(1)
			docLog.Info("document complete",
				zap.String("method", string(rec.Metadata.ExtractionMethod)),
				zap.Float64("confidence", rec.Metadata.ConfidenceScore),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	log.Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	fmt.Printf("Processed %d documents: %d succeeded, %d failed\n",
		len(paths), succeeded.Load(), failed.Load())
	return nil
}
