package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	m, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(m.Outputs) != 0 || m.RunID != "" {
		t.Fatalf("expected empty manifest, got %+v", m)
	}
}

func TestRecordSaveReload(t *testing.T) {
	dir := t.TempDir()
	m, _ := Load(dir)
	id := m.Begin("clean")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("run id not a uuid: %v", err)
	}
	m.Record("transport", filepath.Join(dir, "means_transport_clean.csv"), 1332, 13)
	m.Record("income", filepath.Join(dir, "median_income_clean.csv"), 1332, 3)
	if err := m.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.RunID != id || got.Command != "clean" {
		t.Fatalf("run mismatch: %+v", got)
	}
	outs := got.Sorted()
	if len(outs) != 2 || outs[0].Name != "means_transport_clean.csv" || outs[1].Name != "median_income_clean.csv" {
		t.Fatalf("unexpected outputs: %+v", outs)
	}
	if outs[0].Rows != 1332 || outs[0].Columns != 13 || outs[0].RunID != id {
		t.Fatalf("unexpected entry: %+v", outs[0])
	}
}

func TestBeginKeepsEarlierOutputs(t *testing.T) {
	dir := t.TempDir()
	m, _ := Load(dir)
	first := m.Begin("clean")
	m.Record("income", "median_income_clean.csv", 3, 3)
	second := m.Begin("join")
	m.Record("master", "tract_mobility_master.csv", 3, 30)
	if first == second {
		t.Fatal("expected a new run id")
	}
	if m.Outputs["median_income_clean.csv"].RunID != first {
		t.Fatal("earlier output should keep its run id")
	}
	if m.Outputs["tract_mobility_master.csv"].RunID != second {
		t.Fatal("new output should carry the current run id")
	}
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveWithoutDir(t *testing.T) {
	var m Manifest
	if err := m.Save(); err == nil {
		t.Fatal("expected error")
	}
}
