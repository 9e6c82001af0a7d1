package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/cleared-dev/ledgeraudit/internal/model"
)

// Column presets for the ledger table.
const (
	PresetAccounting = "accounting"
	PresetFull       = "full"
)

// LedgerColumns resolves a preset name or a path to a JSON array of column
// names. Names that are not ledger columns are dropped. A blank preset
// selects every column, as does a file that cannot be read.
func LedgerColumns(preset string, log *slog.Logger) []string {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", PresetFull:
		return slices.Clone(model.LedgerColumns)
	case PresetAccounting:
		return slices.Clone(model.ReconciliationColumns)
	}

	cols, err := loadColumns(preset)
	if err != nil {
		if log != nil {
			log.Warn("could not load ledger column preset, using full", "preset", preset, "error", err)
		}
		return slices.Clone(model.LedgerColumns)
	}
	return cols
}

func loadColumns(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading column preset: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parsing column preset: %w", err)
	}
	cols := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := ledgerFields[n]; ok {
			cols = append(cols, n)
		}
	}
	return cols, nil
}
