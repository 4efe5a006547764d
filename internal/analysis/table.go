// Package analysis produces read-only diagnostic reports over cleaned and
// master tables: shape, head rows, summary statistics and null counts, plus
// the income quartile breakdown.
package analysis

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/tractmobility-cli/internal/table"
	"gonum.org/v1/gonum/stat"
)

// Options controls report contents.
type Options struct {
	// SampleRows is the number of head rows to include.
	SampleRows int
	// IDColumns are numeric-looking identifiers excluded from statistics.
	IDColumns []string
	// Correlations computes pairwise Pearson correlations among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns the options used by the explore command.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		IDColumns:        []string{"geoid", "station_id"},
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Report is a read-only summary of one table.
type Report struct {
	Name     string
	Rows     int
	Columns  []string
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Corr     *CorrMatrix
}

// ColumnSummary captures inferred kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|identifier|categorical|text|empty
	NonNull int
	Missing int
	Unique  int
	// Numeric stats; quartiles use linear interpolation between order statistics.
	Min  float64
	Q25  float64
	Q50  float64
	Q75  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// AnalyzeCSV loads a cleaned or master CSV and describes it.
func AnalyzeCSV(path string, opt Options) (*Report, error) {
	t, err := table.ReadFile(path, table.ReadOptions{})
	if err != nil {
		return nil, err
	}
	rep := Describe(t, opt)
	rep.Name = filepath.Base(path)
	return rep, nil
}

// Describe summarizes t without modifying it.
func Describe(t *table.Table, opt Options) *Report {
	rep := &Report{Name: t.Name, Rows: t.Len(), Columns: append([]string(nil), t.Columns...)}
	sampleRows := opt.SampleRows
	if sampleRows < 0 {
		sampleRows = 0
	}
	for i := 0; i < t.Len() && i < sampleRows; i++ {
		rep.Samples = append(rep.Samples, append([]string(nil), t.Rows[i]...))
	}
	ids := map[string]bool{}
	for _, c := range opt.IDColumns {
		ids[strings.ToLower(c)] = true
	}

	// numeric columns keep per-row values so correlations can pair them up
	type numCol struct {
		name  string
		vals  []float64
		valid []bool
	}
	var nums []numCol

	for j, name := range t.Columns {
		s := ColumnSummary{Name: name}
		cats := map[string]int{}
		var vals []float64
		numeric := true
		rowVals := make([]float64, t.Len())
		rowValid := make([]bool, t.Len())
		for i, r := range t.Rows {
			v := strings.TrimSpace(r[j])
			if v == "" {
				s.Missing++
				continue
			}
			s.NonNull++
			cats[v]++
			if x, ok := table.ParseFloat(v); ok {
				vals = append(vals, x)
				rowVals[i], rowValid[i] = x, true
			} else {
				numeric = false
			}
		}
		s.Unique = len(cats)
		switch {
		case s.NonNull == 0:
			s.Kind = "empty"
		case ids[strings.ToLower(name)]:
			s.Kind = "identifier"
		case numeric:
			s.Kind = "numeric"
			fillNumeric(&s, vals, opt)
			nums = append(nums, numCol{name: name, vals: rowVals, valid: rowValid})
		case s.Unique <= 20 || s.Unique*2 <= s.NonNull:
			s.Kind = "categorical"
			s.TopValues = topValues(cats, 8)
		default:
			s.Kind = "text"
			s.TopValues = topValues(cats, 3)
		}
		rep.Cols = append(rep.Cols, s)
	}

	if opt.Correlations && len(nums) >= 2 {
		m := &CorrMatrix{Values: make([][]float64, len(nums))}
		for a := range nums {
			m.Columns = append(m.Columns, nums[a].name)
			m.Values[a] = make([]float64, len(nums))
		}
		for a := range nums {
			m.Values[a][a] = 1
			for b := a + 1; b < len(nums); b++ {
				r, ok := Pearson(nums[a].vals, nums[a].valid, nums[b].vals, nums[b].valid)
				if !ok {
					r = 0
				}
				m.Values[a][b], m.Values[b][a] = r, r
			}
		}
		rep.Corr = m
	}
	if rep.Rows == 0 {
		rep.Warnings = append(rep.Warnings, "table has no data rows")
	}
	return rep
}

func fillNumeric(s *ColumnSummary, vals []float64, opt Options) {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q25 = quantile(sorted, 0.25)
	s.Q50 = quantile(sorted, 0.5)
	s.Q75 = quantile(sorted, 0.75)
	if len(sorted) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
	} else {
		s.Mean = sorted[0]
		s.Std = math.NaN()
	}
	if opt.Outliers && len(sorted) >= 8 {
		median, mad := medianMAD(sorted)
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		if mad > 0 {
			for _, v := range sorted {
				az := math.Abs(0.6745 * (v - median) / mad)
				if az > thr {
					s.OutliersCount++
				}
				if az > s.OutliersMaxAbsZ {
					s.OutliersMaxAbsZ = az
				}
			}
		}
		s.OutlierThreshold = thr
	}
}

// Pearson correlates x and y over rows where both are valid.
// It reports false with fewer than two complete pairs or zero variance.
func Pearson(x []float64, xOK []bool, y []float64, yOK []bool) (float64, bool) {
	var a, b []float64
	for i := range x {
		if i < len(y) && xOK[i] && yOK[i] {
			a = append(a, x[i])
			b = append(b, y[i])
		}
	}
	if len(a) < 2 {
		return 0, false
	}
	r := stat.Correlation(a, b, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

func topValues(cats map[string]int, n int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

// NullCounts returns per-column missing counts in column order.
func (r *Report) NullCounts() []CategoryCount {
	out := make([]CategoryCount, len(r.Cols))
	for i, c := range r.Cols {
		out[i] = CategoryCount{Value: c.Name, Count: c.Missing}
	}
	return out
}

// Column returns the summary for name.
func (r *Report) Column(name string) (ColumnSummary, bool) {
	for _, c := range r.Cols {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

// Markdown renders the report: basic info, head rows, numeric summary and
// missing values, in that order.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[BASIC INFO]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Shape: %d rows x %d columns\n", r.Rows, len(r.Columns)))
	b.WriteString("Columns: ")
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = safeName(c)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n")

	if len(r.Samples) > 0 {
		b.WriteString(fmt.Sprintf("\n[FIRST %d ROWS]\n", len(r.Samples)))
		rows := [][]string{names}
		for _, s := range r.Samples {
			row := make([]string, len(r.Columns))
			for i := range row {
				if i < len(s) {
					row[i] = truncate(safeVal(s[i]), 40)
				}
			}
			rows = append(rows, row)
		}
		writeTable(&b, rows)
	}

	var numRows [][]string
	for _, c := range r.Cols {
		if c.Kind != "numeric" {
			continue
		}
		numRows = append(numRows, []string{
			safeName(c.Name), fmt.Sprintf("%d", c.NonNull), num(c.Mean), num(c.Std), num(c.Min),
			num(c.Q25), num(c.Q50), num(c.Q75), num(c.Max),
		})
	}
	if len(numRows) > 0 {
		b.WriteString("\n[SUMMARY STATS]\n")
		rows := append([][]string{{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}}, numRows...)
		writeTable(&b, rows)
		for _, c := range r.Cols {
			if c.Kind == "numeric" && c.OutliersCount > 0 {
				b.WriteString(fmt.Sprintf("- %s: %d outliers above |z|>%.1f (max |z|≈%.2f)\n", safeName(c.Name), c.OutliersCount, c.OutlierThreshold, c.OutliersMaxAbsZ))
			}
		}
	}

	var catLines []string
	for _, c := range r.Cols {
		if (c.Kind != "categorical" && c.Kind != "text") || len(c.TopValues) == 0 {
			continue
		}
		parts := make([]string, len(c.TopValues))
		for i, kv := range c.TopValues {
			parts[i] = fmt.Sprintf("%s(%d)", truncate(safeVal(kv.Value), 40), kv.Count)
		}
		line := fmt.Sprintf("- %s: %s, unique=%d; top: %s", safeName(c.Name), c.Kind, c.Unique, strings.Join(parts, ", "))
		catLines = append(catLines, line)
	}
	if len(catLines) > 0 {
		b.WriteString("\n[NON-NUMERIC COLUMNS]\n")
		b.WriteString(strings.Join(catLines, "\n"))
		b.WriteString("\n")
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		var pairs []PairCorr
		n := len(r.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, PairCorr{A: r.Corr.Columns[i], B: r.Corr.Columns[j], R: r.Corr.Values[i][j]})
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		if len(pairs) > 10 {
			pairs = pairs[:10]
		}
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	b.WriteString("\n[MISSING VALUES]\n")
	missing := [][]string{{"column", "missing"}}
	for _, nc := range r.NullCounts() {
		missing = append(missing, []string{safeName(nc.Value), fmt.Sprintf("%d", nc.Count)})
	}
	writeTable(&b, missing)

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4g", v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of sorted values.
func medianMAD(sorted []float64) (median, mad float64) {
	if len(sorted) == 0 {
		return 0, 0
	}
	median = quantile(sorted, 0.5)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between the order statistics of sorted,
// the same estimator spreadsheet tools and pandas use by default.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
