package utils_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/tractmobility-cli/internal/utils"
)

func TestSafeWriteFileReplaces(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.csv")
	if err := utils.SafeWriteFile(p, []byte("first")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := utils.SafeWriteFile(p, []byte("second")); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "second" {
		t.Fatalf("got %q", b)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestEnsureDirAndExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := utils.ExpandHome("~/.tractmobility")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != filepath.Join(home, ".tractmobility") {
		t.Fatalf("got %s", got)
	}
	if err := utils.EnsureDir(filepath.Join(got, "nested")); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	rel, _ := utils.ExpandHome("./data_raw/")
	if rel != "data_raw" {
		t.Fatalf("relative path not cleaned: %s", rel)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]int{"rows": 2})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "\n  \"rows\": 2") {
		t.Fatalf("not indented: %s", b)
	}
}
