// Package dataset cleans raw Census and CTA extracts into per-dataset tables.
//
// Every ACS extract goes through the same Cleaner; what differs between them
// is captured by a Schema: which file to read, how many title rows to skip,
// which Census cells to keep and under what names, and which ratios to derive.
package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags a dataset.
type Kind string

const (
	Income    Kind = "income"
	Transport Kind = "transport"
	Vehicles  Kind = "vehicles"
	Travel    Kind = "travel"
	Ridership Kind = "ridership"
)

// Output key and display-name columns shared by every tract table.
const (
	KeyColumn  = "geoid"
	NameColumn = "tract_name"
)

// Measure selects one raw column and renames it. A non-zero Divisor scales
// the parsed value (aggregate minutes / 60, for instance).
type Measure struct {
	Source  string
	Name    string
	Divisor float64
}

// Ratio derives Name = Numerator / Denominator over already-renamed measures.
type Ratio struct {
	Name        string
	Numerator   string
	Denominator string
}

// Schema is the declarative description of one tract-level ACS extract.
type Schema struct {
	Kind      Kind
	Title     string
	RawFile   string
	CleanFile string
	// SkipRows drops leading lines before the header row.
	SkipRows   int
	GeoColumn  string
	NameColumn string
	Measures   []Measure
	Ratios     []Ratio
}

// SourceColumns lists every raw column the schema depends on.
func (s Schema) SourceColumns() []string {
	cols := []string{s.GeoColumn, s.NameColumn}
	for _, m := range s.Measures {
		cols = append(cols, m.Source)
	}
	return cols
}

// OutputColumns lists the cleaned table's columns in write order.
func (s Schema) OutputColumns() []string {
	cols := []string{KeyColumn, NameColumn}
	for _, m := range s.Measures {
		cols = append(cols, m.Name)
	}
	for _, r := range s.Ratios {
		cols = append(cols, r.Name)
	}
	return cols
}

const incomeEstimate = "Estimate!!Median household income in the past 12 months (in 2023 inflation-adjusted dollars)"

var schemas = map[Kind]Schema{
	Income: {
		Kind:       Income,
		Title:      "Median household income (B19013)",
		RawFile:    "median_income.csv",
		CleanFile:  "median_income_clean.csv",
		SkipRows:   1,
		GeoColumn:  "Geography",
		NameColumn: "Geographic Area Name",
		Measures: []Measure{
			{Source: incomeEstimate, Name: "median_income"},
		},
	},
	Transport: {
		Kind:       Transport,
		Title:      "Means of transportation to work (B08301)",
		RawFile:    "means_transport.csv",
		CleanFile:  "means_transport_clean.csv",
		GeoColumn:  "GEO_ID",
		NameColumn: "NAME",
		Measures: []Measure{
			{Source: "B08301_001E", Name: "workers_total"},
			{Source: "B08301_002E", Name: "workers_car"},
			{Source: "B08301_010E", Name: "workers_public"},
			{Source: "B08301_018E", Name: "workers_walk"},
			{Source: "B08301_019E", Name: "workers_other"},
			{Source: "B08301_021E", Name: "workers_home"},
		},
		Ratios: []Ratio{
			{Name: "pct_car", Numerator: "workers_car", Denominator: "workers_total"},
			{Name: "pct_public", Numerator: "workers_public", Denominator: "workers_total"},
			{Name: "pct_walk", Numerator: "workers_walk", Denominator: "workers_total"},
			{Name: "pct_other", Numerator: "workers_other", Denominator: "workers_total"},
			{Name: "pct_home", Numerator: "workers_home", Denominator: "workers_total"},
		},
	},
	Vehicles: {
		Kind:       Vehicles,
		Title:      "Household vehicles available (B08201)",
		RawFile:    "vehicles_available.csv",
		CleanFile:  "vehicles_available_clean.csv",
		GeoColumn:  "GEO_ID",
		NameColumn: "NAME",
		Measures: []Measure{
			{Source: "B08201_001E", Name: "hh_total"},
			{Source: "B08201_002E", Name: "hh_no_vehicle"},
			{Source: "B08201_003E", Name: "hh_one_vehicle"},
			{Source: "B08201_004E", Name: "hh_two_vehicle"},
			{Source: "B08201_005E", Name: "hh_three_plus_vehicle"},
		},
		Ratios: []Ratio{
			{Name: "pct_hh_no_vehicle", Numerator: "hh_no_vehicle", Denominator: "hh_total"},
			{Name: "pct_hh_one_vehicle", Numerator: "hh_one_vehicle", Denominator: "hh_total"},
			{Name: "pct_hh_two_vehicle", Numerator: "hh_two_vehicle", Denominator: "hh_total"},
			{Name: "pct_hh_three_plus_vehicle", Numerator: "hh_three_plus_vehicle", Denominator: "hh_total"},
		},
	},
	Travel: {
		Kind:       Travel,
		Title:      "Aggregate travel time to work (B08303)",
		RawFile:    "travel_time.csv",
		CleanFile:  "travel_time_clean.csv",
		GeoColumn:  "GEO_ID",
		NameColumn: "NAME",
		Measures: []Measure{
			{Source: "B08303_001E", Name: "mean_travel_time_min", Divisor: 60},
		},
	},
}

// Lookup returns the schema for a tract-level kind.
func Lookup(k Kind) (Schema, bool) {
	s, ok := schemas[k]
	return s, ok
}

// TractKinds lists the tract-level datasets in join order; income is the anchor.
func TractKinds() []Kind {
	return []Kind{Income, Transport, Vehicles, Travel}
}

// AllKinds lists every dataset the pipeline cleans.
func AllKinds() []Kind {
	return append(TractKinds(), Ridership)
}

// ParseKind accepts a dataset name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds() {
		if k == known {
			return k, nil
		}
	}
	names := make([]string, 0, len(AllKinds()))
	for _, known := range AllKinds() {
		names = append(names, string(known))
	}
	sort.Strings(names)
	return "", fmt.Errorf("unknown dataset %q (use one of: %s)", s, strings.Join(names, ", "))
}
