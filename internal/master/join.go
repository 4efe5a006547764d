// Package master builds the tract mobility master table.
package master

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/tractmobility-cli/internal/dataset"
	"github.com/KaramelBytes/tractmobility-cli/internal/logger"
	"github.com/KaramelBytes/tractmobility-cli/internal/table"
)

// FileName is the master output written to the processed directory.
const FileName = "tract_mobility_master.csv"

// Stats reports per-input match counts for a join.
type Stats struct {
	AnchorRows int
	// Matched counts anchor rows that found a partner in each right table.
	Matched map[string]int
}

// Join left joins each right table onto anchor by geoid, in argument order.
// The display-name column is dropped from every right table first, so the
// result has exactly one tract_name (the anchor's). Inputs are not modified.
func Join(anchor *table.Table, right []*table.Table, log *logger.Logger) (*table.Table, *Stats, error) {
	log = logger.OrNop(log)
	if err := anchor.Require(dataset.KeyColumn, dataset.NameColumn); err != nil {
		return nil, nil, err
	}
	if err := anchor.CheckUnique(dataset.KeyColumn); err != nil {
		return nil, nil, err
	}

	out := table.New("tract_mobility_master", anchor.Columns)
	for _, r := range anchor.Rows {
		out.Append(r)
	}
	st := &Stats{AnchorRows: anchor.Len(), Matched: map[string]int{}}
	key, _ := out.Index(dataset.KeyColumn)

	for _, rt := range right {
		if err := rt.Require(dataset.KeyColumn); err != nil {
			return nil, nil, err
		}
		if err := rt.CheckUnique(dataset.KeyColumn); err != nil {
			return nil, nil, err
		}
		rkey, _ := rt.Index(dataset.KeyColumn)

		// columns carried over: everything but the key and the display name
		var carry []int
		for j, c := range rt.Columns {
			if j == rkey || c == dataset.NameColumn {
				continue
			}
			if _, clash := out.Index(c); clash {
				return nil, nil, fmt.Errorf("join %s: column %q already present in master", rt.Name, c)
			}
			carry = append(carry, j)
		}

		lookup := make(map[string][]string, rt.Len())
		for _, r := range rt.Rows {
			lookup[r[rkey]] = r
		}

		cols := append([]string(nil), out.Columns...)
		for _, j := range carry {
			cols = append(cols, rt.Columns[j])
		}
		next := table.New(out.Name, cols)
		matched := 0
		for _, r := range out.Rows {
			row := make([]string, 0, len(cols))
			row = append(row, r...)
			m, ok := lookup[r[key]]
			if ok {
				matched++
			}
			for _, j := range carry {
				if ok {
					row = append(row, m[j])
				} else {
					row = append(row, "")
				}
			}
			next.Append(row)
		}
		out = next
		st.Matched[rt.Name] = matched
		log.Debug("joined", "table", rt.Name, "right_rows", rt.Len(), "matched", matched, "unmatched", out.Len()-matched)
	}

	if out.Len() != anchor.Len() {
		return nil, nil, fmt.Errorf("join produced %d rows for %d anchor rows", out.Len(), anchor.Len())
	}
	return out, st, nil
}

// BuildFile reads the four cleaned tract tables from dir, joins them in the
// order income, transport, vehicles, travel, and writes FileName to dir.
func BuildFile(dir string, log *logger.Logger) (*table.Table, *Stats, string, error) {
	var tables []*table.Table
	for _, k := range dataset.TractKinds() {
		s, _ := dataset.Lookup(k)
		t, err := table.ReadFile(filepath.Join(dir, s.CleanFile), table.ReadOptions{})
		if err != nil {
			return nil, nil, "", fmt.Errorf("load %s: %w", k, err)
		}
		logger.OrNop(log).Debug("loaded cleaned table", "dataset", string(k), "rows", t.Len())
		tables = append(tables, t)
	}
	out, st, err := Join(tables[0], tables[1:], log)
	if err != nil {
		return nil, nil, "", err
	}
	path := filepath.Join(dir, FileName)
	if err := table.WriteFile(path, out); err != nil {
		return nil, nil, "", fmt.Errorf("write master: %w", err)
	}
	return out, st, path, nil
}
