package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tractmobility-cli/internal/geoid"
	"github.com/KaramelBytes/tractmobility-cli/internal/logger"
	"github.com/KaramelBytes/tractmobility-cli/internal/table"
)

// Result is a cleaned table plus the counts reported after each stage.
type Result struct {
	Table *table.Table
	// RawRows counts data rows as loaded.
	RawRows int
	// MetadataRows counts header-echo and nation rows removed by the structural filter.
	MetadataRows int
	// OtherGeographies counts non-tract rows removed by the scope filter.
	OtherGeographies int
	// NullCells counts coerced-to-null cells per output column.
	NullCells map[string]int
}

// IsArtifactColumn matches the empty trailing columns Census exports carry.
func IsArtifactColumn(name string) bool {
	n := strings.TrimSpace(name)
	return n == "" || strings.HasPrefix(n, "Unnamed")
}

// StructuralFilter drops artifact columns and metadata rows from a raw extract.
// geoColumn must survive the column filter.
func StructuralFilter(raw *table.Table, geoColumn string) (dropped int, err error) {
	raw.DropColumns(IsArtifactColumn)
	if err := raw.Require(geoColumn); err != nil {
		return 0, err
	}
	j, _ := raw.Index(geoColumn)
	before := raw.Len()
	raw.Filter(func(r []string) bool { return !geoid.IsMetadata(r[j]) })
	return before - raw.Len(), nil
}

// Clean runs the structural filter, scope filter, key derivation, projection,
// coercion and ratio steps over raw. raw is modified in place.
func Clean(raw *table.Table, s Schema, log *logger.Logger) (*Result, error) {
	log = logger.OrNop(log).With("dataset", string(s.Kind))
	res := &Result{RawRows: raw.Len(), NullCells: map[string]int{}}
	log.Debug("loaded", "rows", raw.Len(), "columns", len(raw.Columns))

	meta, err := StructuralFilter(raw, s.GeoColumn)
	if err != nil {
		return nil, err
	}
	res.MetadataRows = meta
	if err := raw.Require(s.SourceColumns()...); err != nil {
		return nil, err
	}

	geo, _ := raw.Index(s.GeoColumn)
	before := raw.Len()
	raw.Filter(func(r []string) bool { return geoid.IsTract(r[geo]) })
	res.OtherGeographies = before - raw.Len()
	log.Debug("scope filter", "kept", raw.Len(), "dropped_metadata", meta, "dropped_other", res.OtherGeographies)

	name, _ := raw.Index(s.NameColumn)
	src := make([]int, len(s.Measures))
	for i, m := range s.Measures {
		src[i], _ = raw.Index(m.Source)
	}
	// position of each measure name within the measure block, for ratio lookup
	pos := make(map[string]int, len(s.Measures))
	for i, m := range s.Measures {
		pos[m.Name] = i
	}
	for _, r := range s.Ratios {
		if _, ok := pos[r.Numerator]; !ok {
			return nil, fmt.Errorf("schema %s: ratio %s references unknown measure %s", s.Kind, r.Name, r.Numerator)
		}
		if _, ok := pos[r.Denominator]; !ok {
			return nil, fmt.Errorf("schema %s: ratio %s references unknown measure %s", s.Kind, r.Name, r.Denominator)
		}
	}

	out := table.New(cleanName(s), s.OutputColumns())
	outside := 0
	vals := make([]float64, len(s.Measures))
	ok := make([]bool, len(s.Measures))
	for _, r := range raw.Rows {
		id, err := geoid.Normalize(r[geo])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Kind, err)
		}
		if geoid.County(id) != geoid.CookCounty {
			outside++
		}
		row := make([]string, 0, len(out.Columns))
		row = append(row, id, strings.TrimSpace(r[name]))
		for i, m := range s.Measures {
			vals[i], ok[i] = table.ParseFloat(r[src[i]])
			if ok[i] && m.Divisor != 0 {
				vals[i] /= m.Divisor
			}
			if !ok[i] {
				res.NullCells[m.Name]++
			}
			row = append(row, table.FormatFloat(vals[i], ok[i]))
		}
		for _, rt := range s.Ratios {
			v, valid := Share(vals[pos[rt.Numerator]], ok[pos[rt.Numerator]], vals[pos[rt.Denominator]], ok[pos[rt.Denominator]])
			if !valid {
				res.NullCells[rt.Name]++
			}
			row = append(row, table.FormatFloat(v, valid))
		}
		out.Append(row)
	}
	if err := out.CheckUnique(KeyColumn); err != nil {
		return nil, err
	}
	if outside > 0 {
		log.Warn("tracts outside Cook County", "count", outside)
	}
	res.Table = out
	log.Debug("cleaned", "tracts", out.Len(), "null_cells", res.NullCells)
	return res, nil
}

// Share divides part by total. A null operand or a zero total yields null.
func Share(part float64, partOK bool, total float64, totalOK bool) (float64, bool) {
	if !partOK || !totalOK || total == 0 {
		return 0, false
	}
	return part / total, true
}

// CleanFile loads rawDir/s.RawFile, cleans it and writes processedDir/s.CleanFile.
// Nothing is written when any step fails.
func CleanFile(rawDir, processedDir string, s Schema, log *logger.Logger) (*Result, string, error) {
	raw, err := table.ReadFile(filepath.Join(rawDir, s.RawFile), table.ReadOptions{SkipRows: s.SkipRows})
	if err != nil {
		return nil, "", err
	}
	res, err := Clean(raw, s, log)
	if err != nil {
		return nil, "", err
	}
	out := filepath.Join(processedDir, s.CleanFile)
	if err := table.WriteFile(out, res.Table); err != nil {
		return nil, "", fmt.Errorf("write %s: %w", s.CleanFile, err)
	}
	return res, out, nil
}

func cleanName(s Schema) string {
	return strings.TrimSuffix(s.CleanFile, filepath.Ext(s.CleanFile))
}
