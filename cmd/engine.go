package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/extract"
	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/schema"
	"github.com/sells-group/cre-extract/pkg/anthropic"
)

// buildEngine wires the extraction engine from global config. The generative
// strategy is attached only when an API key is configured.
func buildEngine() (*extract.Engine, error) {
	s := schema.Default()
	pattern := extract.NewPatternStrategy(s, cfg.Extract)

	var generative extract.Strategy
	if cfg.Anthropic.Configured() {
		client := anthropic.NewClient(cfg.Anthropic.Key)
		gen, err := extract.NewGenerativeStrategy(client, s, cfg)
		if err != nil {
			return nil, eris.Wrap(err, "build generative strategy")
		}
		generative = gen
	} else {
		zap.L().Info("no API key configured, pattern extraction only")
	}

	return extract.NewEngine(s, pattern, generative, cfg), nil
}

// loadDocument reads a text file into a Document, inferring the declared
// source type from the extension.
func loadDocument(path string) (model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, eris.Wrapf(err, "read document %s", path)
	}
	return model.Document{
		Name: filepath.Base(path),
		Type: docType(path),
		Text: string(data),
	}, nil
}

func docType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "pdf"
	case ".doc", ".docx":
		return "word"
	case ".xls", ".xlsx", ".csv":
		return "excel"
	default:
		return "text"
	}
}
