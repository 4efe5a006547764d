package cmd

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/tractmobility-cli/internal/manifest"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags clears sticky flag state left over from earlier invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns its stdout.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir and stages raw extracts.
func isolate(t *testing.T) (raw, processed string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	raw = filepath.Join(home, "data_raw")
	processed = filepath.Join(home, "data_processed")
	if err := os.MkdirAll(raw, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"median_income.csv", "means_transport.csv", "cta_entries.csv"} {
		b, err := os.ReadFile(filepath.Join("..", "internal", "dataset", "testdata", name))
		if err != nil {
			t.Fatalf("read fixture: %v", err)
		}
		writeFile(t, filepath.Join(raw, name), string(b))
	}
	writeFile(t, filepath.Join(raw, "vehicles_available.csv"), strings.Join([]string{
		"GEO_ID,NAME,B08201_001E,B08201_002E,B08201_003E,B08201_004E,B08201_005E",
		"Geography,Geographic Area Name,Estimate!!Total:,Estimate!!Total:!!No vehicle available,Estimate!!Total:!!1 vehicle available,Estimate!!Total:!!2 vehicles available,Estimate!!Total:!!3 or more vehicles available",
		`1400000US17031010100,"Census Tract 101; Cook County; Illinois",200,50,100,40,10`,
	}, "\n")+"\n")
	writeFile(t, filepath.Join(raw, "travel_time.csv"), strings.Join([]string{
		"GEO_ID,NAME,B08303_001E",
		"Geography,Geographic Area Name,Estimate!!Aggregate travel time to work (in minutes)",
		`1400000US17031010100,"Census Tract 101; Cook County; Illinois",12000`,
		`1400000US17031842300,"Census Tract 8423; Cook County; Illinois",6000`,
	}, "\n")+"\n")
	return raw, processed
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return rows
}

func TestCLI_RunBuildsMasterAndManifest(t *testing.T) {
	raw, processed := isolate(t)
	out := runCmd(t, "--raw-dir", raw, "--processed-dir", processed, "run")
	if !strings.Contains(out, "✓ master") || !strings.Contains(out, "complete") {
		t.Fatalf("unexpected run output:\n%s", out)
	}

	rows := readCSV(t, filepath.Join(processed, "tract_mobility_master.csv"))
	if len(rows) != 4 {
		t.Fatalf("master should have one row per income tract, got %d data rows", len(rows)-1)
	}
	header := rows[0]
	if header[0] != "geoid" || header[1] != "tract_name" || header[2] != "median_income" {
		t.Fatalf("unexpected master header: %v", header)
	}
	names := 0
	for _, h := range header {
		if h == "tract_name" {
			names++
		}
	}
	if names != 1 {
		t.Fatalf("expected exactly one tract_name column, got %d", names)
	}

	m, err := manifest.Load(processed)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if m.RunID == "" || m.Command != "run" {
		t.Fatalf("unexpected manifest run: %+v", m)
	}
	if len(m.Outputs) != 6 {
		t.Fatalf("expected 5 cleaned outputs plus master, got %d", len(m.Outputs))
	}
	if o := m.Outputs["tract_mobility_master.csv"]; o == nil || o.Rows != 3 {
		t.Fatalf("master entry missing or wrong: %+v", o)
	}
}

func TestCLI_CleanSubsetAndUnknownDataset(t *testing.T) {
	raw, processed := isolate(t)
	runCmd(t, "--raw-dir", raw, "--processed-dir", processed, "clean", "transport", "ridership")
	if _, err := os.Stat(filepath.Join(processed, "means_transport_clean.csv")); err != nil {
		t.Fatalf("transport not cleaned: %v", err)
	}
	if _, err := os.Stat(filepath.Join(processed, "median_income_clean.csv")); !os.IsNotExist(err) {
		t.Fatalf("income should not have been cleaned")
	}
	rides := readCSV(t, filepath.Join(processed, "cta_ridership_clean.csv"))
	if rides[1][0] != "9000" {
		t.Fatalf("stations should sort numerically, first is %q", rides[1][0])
	}

	if _, err := execCmd(t, "--raw-dir", raw, "--processed-dir", processed, "clean", "weather"); err == nil {
		t.Fatal("expected error for unknown dataset")
	}
}

func TestCLI_JoinWithoutCleanedInputsFails(t *testing.T) {
	_, processed := isolate(t)
	if _, err := execCmd(t, "--processed-dir", processed, "join"); err == nil {
		t.Fatal("expected join to fail without cleaned tables")
	}
	if _, err := os.Stat(filepath.Join(processed, "tract_mobility_master.csv")); !os.IsNotExist(err) {
		t.Fatal("no master should be written on failure")
	}
}

func TestCLI_ExploreAndQuartiles(t *testing.T) {
	raw, processed := isolate(t)
	runCmd(t, "--raw-dir", raw, "--processed-dir", processed, "run")

	out := runCmd(t, "--processed-dir", processed, "explore", "--head", "2")
	for _, want := range []string{"Shape: 3 rows x", "[FIRST 2 ROWS]", "[MISSING VALUES]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("explore output missing %q:\n%s", want, out)
		}
	}

	out = runCmd(t, "--processed-dir", processed, "quartiles")
	if !strings.Contains(out, "[INCOME QUARTILES]") {
		t.Fatalf("unexpected quartiles output:\n%s", out)
	}
	rows := readCSV(t, filepath.Join(processed, QuartilesFileName))
	// only tract 101 has a parseable income
	if len(rows) != 2 || rows[1][0] != "17031010100" || rows[1][3] != "Q1 – Lowest income" {
		t.Fatalf("unexpected assignments: %v", rows)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	isolate(t)
	runCmd(t, "config", "set", "ridership_year", "2022")
	runCmd(t, "config", "set", "export_dsn", "postgres://etl:hunter22@db:5432/mobility")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "ridership_year: 2022") {
		t.Fatalf("config not persisted:\n%s", out)
	}
	if strings.Contains(out, "hunter22") {
		t.Fatalf("dsn password should be masked:\n%s", out)
	}
	if _, err := execCmd(t, "config", "set", "nope", "1"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestCLI_DatasetsAndExportValidation(t *testing.T) {
	isolate(t)
	out := runCmd(t, "datasets")
	if !strings.Contains(out, "mean_travel_time_min ← B08303_001E / 60") {
		t.Fatalf("datasets output missing travel mapping:\n%s", out)
	}
	if _, err := execCmd(t, "export"); err == nil || !strings.Contains(err.Error(), "no DSN") {
		t.Fatalf("expected missing DSN error, got %v", err)
	}
	if _, err := execCmd(t, "export", "--dsn", "x", "--dialect", "oracle"); err == nil {
		t.Fatal("expected unsupported dialect error")
	}
}

func TestMaskDSN(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"postgres://etl:hunter22@db/mobility", "postgres://etl:hun****r22@db/mobility"},
		{"user=etl password=secret host=db", "user=etl password=****** host=db"},
		{"clickhouse://db:9000/default", "clickhouse://db:9000/default"},
	}
	for _, tc := range cases {
		if got := maskDSN(tc.in); got != tc.want {
			t.Errorf("maskDSN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
