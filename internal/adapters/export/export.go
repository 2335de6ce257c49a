// Package export writes completed backtests to disk and reads them back.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
)

// Methodology tags every exported document.
const Methodology = "JAIME_MERINO"

// Document is the on-disk form of a backtest: summary plus closed-trade ledger.
type Document struct {
	Results     *domain.Summary `json:"results"`
	Trades      []*domain.Trade `json:"trades"`
	Methodology string          `json:"methodology"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// NewDocument builds a document stamped with the current UTC time.
func NewDocument(summary *domain.Summary, trades []*domain.Trade) *Document {
	if trades == nil {
		trades = []*domain.Trade{}
	}
	return &Document{
		Results:     summary,
		Trades:      trades,
		Methodology: Methodology,
		GeneratedAt: time.Now().UTC(),
	}
}

// Save writes the document as indented JSON, creating parent directories.
func Save(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ports.ErrExportFailed, path, err)
	}
	return writeFile(path, data)
}

// Load reads a document written by Save.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ports.ErrExportFailed, path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ports.ErrExportFailed, path, err)
	}
	if doc.Results == nil {
		return nil, fmt.Errorf("%w: %s has no results section", ports.ErrExportFailed, path)
	}
	return &doc, nil
}

// SaveSummaryYAML renders the summary alone as YAML for review.
func SaveSummaryYAML(path string, summary *domain.Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ports.ErrExportFailed, path, err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %w", ports.ErrExportFailed, dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %w", ports.ErrExportFailed, path, err)
	}
	return nil
}
