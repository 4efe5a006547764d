package dataset

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tractmobility-cli/internal/logger"
	"github.com/KaramelBytes/tractmobility-cli/internal/table"
)

// RidershipSpec describes the CTA station-entries extract.
type RidershipSpec struct {
	RawFile   string
	CleanFile string
	// Year keeps only entries dated in this calendar year.
	Year int
}

// Raw column names in the CTA daily station entries export.
const (
	colStationID   = "station_id"
	colStationName = "stationname"
	colDate        = "date"
	colDayType     = "daytype"
	colRides       = "rides"
)

// DefaultRidership returns the CTA extract settings the pipeline uses.
func DefaultRidership() RidershipSpec {
	return RidershipSpec{RawFile: "cta_entries.csv", CleanFile: "cta_ridership_clean.csv", Year: 2023}
}

// RidershipColumns is the cleaned ridership header.
func RidershipColumns() []string {
	return []string{"station_id", "station_name", "total_rides", "avg_rides_daily", "avg_weekday", "avg_weekend"}
}

// RidershipResult is the aggregated station table plus drop counts.
type RidershipResult struct {
	Table   *table.Table
	RawRows int
	// BadKeys counts rows with a blank station id or name.
	BadKeys     int
	BadDates    int
	BadRides    int
	OutsideYear int
}

type stationAcc struct {
	id, name    string
	total       int64
	days        int
	weekdaySum  int64
	weekdayDays int
	weekendSum  int64
	weekendDays int
}

// CleanRidership aggregates daily station entries into one row per station.
// Rows with an unparseable date or ride count are dropped, not nulled.
func CleanRidership(raw *table.Table, spec RidershipSpec, log *logger.Logger) (*RidershipResult, error) {
	log = logger.OrNop(log).With("dataset", string(Ridership))
	raw.DropColumns(IsArtifactColumn)
	if err := raw.Require(colStationID, colStationName, colDate, colDayType, colRides); err != nil {
		return nil, err
	}
	iID, _ := raw.Index(colStationID)
	iName, _ := raw.Index(colStationName)
	iDate, _ := raw.Index(colDate)
	iType, _ := raw.Index(colDayType)
	iRides, _ := raw.Index(colRides)

	res := &RidershipResult{RawRows: raw.Len()}
	groups := map[[2]string]*stationAcc{}
	for _, r := range raw.Rows {
		key := [2]string{strings.TrimSpace(r[iID]), strings.TrimSpace(r[iName])}
		if key[0] == "" || key[1] == "" {
			res.BadKeys++
			continue
		}
		d, ok := parseDate(r[iDate])
		if !ok {
			res.BadDates++
			continue
		}
		f, ok := table.ParseFloat(r[iRides])
		if !ok {
			res.BadRides++
			continue
		}
		if d.Year() != spec.Year {
			res.OutsideYear++
			continue
		}
		rides := int64(f)
		acc := groups[key]
		if acc == nil {
			acc = &stationAcc{id: key[0], name: key[1]}
			groups[key] = acc
		}
		acc.total += rides
		acc.days++
		switch strings.ToUpper(strings.TrimSpace(r[iType])) {
		case "W":
			acc.weekdaySum += rides
			acc.weekdayDays++
		case "A", "U":
			acc.weekendSum += rides
			acc.weekendDays++
		}
	}
	log.Debug("filtered", "raw", res.RawRows, "bad_keys", res.BadKeys, "bad_dates", res.BadDates, "bad_rides", res.BadRides, "outside_year", res.OutsideYear)

	stations := make([]*stationAcc, 0, len(groups))
	numericIDs := true
	for _, acc := range groups {
		stations = append(stations, acc)
		if _, err := strconv.ParseInt(acc.id, 10, 64); err != nil {
			numericIDs = false
		}
	}
	sort.Slice(stations, func(i, j int) bool {
		a, b := stations[i], stations[j]
		if a.id != b.id {
			if numericIDs {
				ai, _ := strconv.ParseInt(a.id, 10, 64)
				bi, _ := strconv.ParseInt(b.id, 10, 64)
				return ai < bi
			}
			return a.id < b.id
		}
		return a.name < b.name
	})

	out := table.New(strings.TrimSuffix(spec.CleanFile, filepath.Ext(spec.CleanFile)), RidershipColumns())
	for _, s := range stations {
		out.Append([]string{
			s.id,
			s.name,
			strconv.FormatInt(s.total, 10),
			table.FormatFloat(mean(s.total, s.days)),
			table.FormatFloat(mean(s.weekdaySum, s.weekdayDays)),
			table.FormatFloat(mean(s.weekendSum, s.weekendDays)),
		})
	}
	res.Table = out
	log.Debug("aggregated", "stations", out.Len())
	return res, nil
}

// CleanRidershipFile loads, aggregates and writes the ridership extract.
func CleanRidershipFile(rawDir, processedDir string, spec RidershipSpec, log *logger.Logger) (*RidershipResult, string, error) {
	raw, err := table.ReadFile(filepath.Join(rawDir, spec.RawFile), table.ReadOptions{})
	if err != nil {
		return nil, "", err
	}
	res, err := CleanRidership(raw, spec, log)
	if err != nil {
		return nil, "", err
	}
	out := filepath.Join(processedDir, spec.CleanFile)
	if err := table.WriteFile(out, res.Table); err != nil {
		return nil, "", fmt.Errorf("write %s: %w", spec.CleanFile, err)
	}
	return res, out, nil
}

func mean(sum int64, n int) (float64, bool) {
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 03:04:05 PM",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
