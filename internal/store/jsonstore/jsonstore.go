package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/idilsaglam/shoplist/internal/model"
)

// JSON snapshot of a list. Single file, human-readable, portable.
// Line totals and the total are written for readers of the file; Load
// ignores them and recomputes from the items.

type exportedItem struct {
	model.Item
	LineTotal float64 `json:"line_total"`
}

type document struct {
	ExportedAt time.Time      `json:"exported_at"`
	Total      float64        `json:"total"`
	Items      []exportedItem `json:"items"`
}

func Load(path string) ([]model.Item, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	items := make([]model.Item, 0, len(doc.Items))
	for _, it := range doc.Items {
		items = append(items, it.Item)
	}
	return items, nil
}

func Save(path string, items []model.Item) error {
	doc := document{
		ExportedAt: time.Now().UTC(),
		Total:      model.TotalCost(items),
		Items:      make([]exportedItem, 0, len(items)),
	}
	for _, it := range items {
		doc.Items = append(doc.Items, exportedItem{Item: it, LineTotal: it.LineTotal()})
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
