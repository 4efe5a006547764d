package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tractmobility-cli/internal/dataset"
	"github.com/KaramelBytes/tractmobility-cli/internal/table"
	"gonum.org/v1/gonum/stat"
)

// Column names the quartile report reads from the master table.
const (
	IncomeColumn   = "median_income"
	QuartileColumn = "income_quartile"
)

// QuartileLabels are the group labels in ascending income order.
var QuartileLabels = [4]string{
	"Q1 – Lowest income",
	"Q2 – Lower-middle",
	"Q3 – Upper-middle",
	"Q4 – Highest income",
}

// QuartileMetrics are the master columns averaged per income group.
var QuartileMetrics = []string{"pct_public", "pct_hh_no_vehicle", "mean_travel_time_min"}

// QuartileGroup summarizes the tracts in one income quartile.
type QuartileGroup struct {
	Label  string
	Tracts int
	// Means is keyed by metric; ok is false when no tract in the group had a value.
	Means   map[string]float64
	MeansOK map[string]bool
	// IncomeTravelR is the Pearson r of income vs travel time within the group.
	IncomeTravelR  float64
	IncomeTravelOK bool
}

// QuartileReport is the income quartile breakdown of the master table.
type QuartileReport struct {
	// Thresholds are computed over the IncomeTracts tracts with a known income,
	// whether or not their mobility metrics are present.
	Thresholds     [3]float64
	IncomeTracts   int
	Groups         [4]QuartileGroup
	Unassigned     int
	IncomeTravelR  float64
	IncomeTravelOK bool
	// Assignments has geoid, tract_name, median_income and income_quartile
	// for every tract with a known income, in master order.
	Assignments *table.Table
}

// AssignQuartile places v against the 25/50/75th percentile thresholds.
// Values equal to a threshold fall in the lower group.
func AssignQuartile(v float64, th [3]float64) int {
	switch {
	case v <= th[0]:
		return 0
	case v <= th[1]:
		return 1
	case v <= th[2]:
		return 2
	default:
		return 3
	}
}

// IncomeQuartiles bins master rows by median income and summarizes mobility
// metrics per group. Metric columns absent from master are reported as null.
func IncomeQuartiles(master *table.Table) (*QuartileReport, error) {
	if err := master.Require(dataset.KeyColumn, dataset.NameColumn, IncomeColumn); err != nil {
		return nil, err
	}
	income, incomeOK, _ := master.Floats(IncomeColumn)

	var known []float64
	for i, ok := range incomeOK {
		if ok {
			known = append(known, income[i])
		}
	}
	if len(known) == 0 {
		return nil, fmt.Errorf("quartiles: no tract in %s has a known %s", master.Name, IncomeColumn)
	}
	sort.Float64s(known)

	rep := &QuartileReport{IncomeTracts: len(known)}
	rep.Thresholds = [3]float64{quantile(known, 0.25), quantile(known, 0.5), quantile(known, 0.75)}

	metrics := map[string][]float64{}
	metricsOK := map[string][]bool{}
	for _, m := range QuartileMetrics {
		vals, ok, err := master.Floats(m)
		if err != nil {
			vals, ok = make([]float64, master.Len()), make([]bool, master.Len())
		}
		metrics[m], metricsOK[m] = vals, ok
	}

	assign := table.New("tract_income_quartiles", []string{dataset.KeyColumn, dataset.NameColumn, IncomeColumn, QuartileColumn})
	members := [4][]int{}
	for i := range master.Rows {
		if !incomeOK[i] {
			rep.Unassigned++
			continue
		}
		q := AssignQuartile(income[i], rep.Thresholds)
		members[q] = append(members[q], i)
		assign.Append([]string{
			master.Get(i, dataset.KeyColumn),
			master.Get(i, dataset.NameColumn),
			master.Get(i, IncomeColumn),
			QuartileLabels[q],
		})
	}
	rep.Assignments = assign

	travel, travelOK := metrics["mean_travel_time_min"], metricsOK["mean_travel_time_min"]
	rep.IncomeTravelR, rep.IncomeTravelOK = Pearson(income, incomeOK, travel, travelOK)

	for q := range rep.Groups {
		g := QuartileGroup{
			Label:   QuartileLabels[q],
			Tracts:  len(members[q]),
			Means:   map[string]float64{},
			MeansOK: map[string]bool{},
		}
		for _, m := range QuartileMetrics {
			var xs []float64
			for _, i := range members[q] {
				if metricsOK[m][i] {
					xs = append(xs, metrics[m][i])
				}
			}
			if len(xs) > 0 {
				g.Means[m] = stat.Mean(xs, nil)
				g.MeansOK[m] = true
			}
		}
		gi, giOK := subset(income, incomeOK, members[q])
		gt, gtOK := subset(travel, travelOK, members[q])
		g.IncomeTravelR, g.IncomeTravelOK = Pearson(gi, giOK, gt, gtOK)
		rep.Groups[q] = g
	}
	return rep, nil
}

func subset(vals []float64, ok []bool, idx []int) ([]float64, []bool) {
	v := make([]float64, len(idx))
	o := make([]bool, len(idx))
	for k, i := range idx {
		v[k], o[k] = vals[i], ok[i]
	}
	return v, o
}

// Text renders the quartile report for the terminal.
func (r *QuartileReport) Text() string {
	var b strings.Builder
	b.WriteString("[INCOME QUARTILES]\n")
	b.WriteString(fmt.Sprintf("Thresholds: 25%%=%s 50%%=%s 75%%=%s (over all %d tracts with a known income)\n",
		num(r.Thresholds[0]), num(r.Thresholds[1]), num(r.Thresholds[2]), r.IncomeTracts))
	if r.Unassigned > 0 {
		b.WriteString(fmt.Sprintf("Tracts without income (unassigned): %d\n", r.Unassigned))
	}
	b.WriteString("\n")

	header := append([]string{"quartile", "tracts"}, QuartileMetrics...)
	header = append(header, "r(income, travel)")
	rows := [][]string{header}
	for _, g := range r.Groups {
		row := []string{g.Label, fmt.Sprintf("%d", g.Tracts)}
		for _, m := range QuartileMetrics {
			row = append(row, optNum(g.Means[m], g.MeansOK[m]))
		}
		row = append(row, optR(g.IncomeTravelR, g.IncomeTravelOK))
		rows = append(rows, row)
	}
	writeTable(&b, rows)
	b.WriteString(fmt.Sprintf("\nOverall r(income, travel time): %s\n", optR(r.IncomeTravelR, r.IncomeTravelOK)))
	return b.String()
}

func optNum(v float64, ok bool) string {
	if !ok || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}

func optR(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}
