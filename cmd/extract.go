package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/model"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract structured CRE data from a single document",
	Long: `Extract structured commercial real estate data from a plain-text document.

Runs the generative strategy when an API key is configured and use_generative
is enabled, falling back to pattern extraction on failure. Emits the full
extraction record as JSON, including per-field citations and quality metadata.

Examples:
  # Extract to stdout
  extract offering-memo.txt

  # Pattern extraction only
  extract --no-generative rent-roll.txt

  # Fail instead of falling back
  extract --no-fallback offering-memo.txt

  # Write to a file
  extract offering-memo.txt --output record.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.Bool("no-generative", false, "skip the generative strategy, pattern only")
	f.Bool("no-fallback", false, "fail on generative errors instead of falling back to patterns")
	f.String("output", "", "output file path (default: stdout)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if v, _ := cmd.Flags().GetBool("no-generative"); v {
		cfg.Extract.UseGenerative = false
	}
	if v, _ := cmd.Flags().GetBool("no-fallback"); v {
		cfg.Extract.EnableFallback = false
	}
	outputPath, _ := cmd.Flags().GetString("output")

	engine, err := buildEngine()
	if err != nil {
		return err
	}

	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	log := zap.L().With(zap.String("document", doc.Name))
	log.Info("extracting document", zap.Int("chars", len(doc.Text)))

	rec, err := engine.Extract(ctx, doc)
	if err != nil {
		return err
	}

	log.Info("extraction complete",
		zap.String("method", string(rec.Metadata.ExtractionMethod)),
		zap.Float64("confidence", rec.Metadata.ConfidenceScore),
		zap.Float64("citation_coverage", rec.Metadata.CitationCoveragePercent),
	)

	return writeRecord(rec, outputPath)
}

// writeRecord serializes a record as indented JSON to outputPath or stdout.
func writeRecord(rec *model.Record, outputPath string) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal record")
	}

	if outputPath == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return eris.Wrapf(err, "write record to %s", outputPath)
	}
	return nil
}
