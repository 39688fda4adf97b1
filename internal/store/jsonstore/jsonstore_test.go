package jsonstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/idilsaglam/shoplist/internal/model"
)

func TestSaveWritesTotals(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "list.json")
	items := []model.Item{
		{ID: 2, Name: "Bread", Quantity: 1, UnitPrice: 2},
		{ID: 1, Name: "Milk", Quantity: 2, UnitPrice: 3.5, Checked: true},
	}
	if err := Save(p, items); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	var raw struct {
		Total float64 `json:"total"`
		Items []struct {
			Price     float64 `json:"price"`
			LineTotal float64 `json:"line_total"`
		} `json:"items"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	if raw.Total != 9 {
		t.Errorf("total = %v, want 9", raw.Total)
	}
	if len(raw.Items) != 2 || raw.Items[1].LineTotal != 7 || raw.Items[1].Price != 3.5 {
		t.Errorf("items = %+v", raw.Items)
	}

	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Load(missing) error = nil")
	}
	p := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(p, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Error("Load(bad json) error = nil")
	}
}
