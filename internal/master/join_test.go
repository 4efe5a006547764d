package master

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/tractmobility-cli/internal/dataset"
	"github.com/KaramelBytes/tractmobility-cli/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func income() *table.Table {
	t := table.New("median_income_clean", []string{"geoid", "tract_name", "median_income"})
	t.Append([]string{"17031010100", "Census Tract 101", "65000"})
	t.Append([]string{"17031990000", "Census Tract 9900", "41000"})
	t.Append([]string{"17031842300", "Census Tract 8423", ""})
	return t
}

func transport() *table.Table {
	t := table.New("means_transport_clean", []string{"geoid", "tract_name", "workers_total", "workers_car", "pct_car"})
	t.Append([]string{"17031010100", "Tract 101 (transport)", "500", "300", "0.6"})
	t.Append([]string{"17031990000", "Tract 9900 (transport)", "80", "20", "0.25"})
	// present only on the right: must not appear in the master
	t.Append([]string{"17031000001", "Stray", "1", "1", "1"})
	return t
}

func vehicles() *table.Table {
	t := table.New("vehicles_available_clean", []string{"geoid", "tract_name", "hh_total", "pct_hh_no_vehicle"})
	t.Append([]string{"17031010100", "Tract 101 (vehicles)", "200", "0.3"})
	return t
}

func travel() *table.Table {
	t := table.New("travel_time_clean", []string{"geoid", "tract_name", "mean_travel_time_min"})
	t.Append([]string{"17031842300", "Tract 8423 (travel)", "20"})
	t.Append([]string{"17031010100", "Tract 101 (travel)", "31.5"})
	return t
}

func TestJoinScenario(t *testing.T) {
	out, st, err := Join(income(), []*table.Table{transport(), vehicles(), travel()}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"geoid", "tract_name", "median_income",
		"workers_total", "workers_car", "pct_car",
		"hh_total", "pct_hh_no_vehicle",
		"mean_travel_time_min",
	}, out.Columns)
	require.Equal(t, 3, out.Len())

	assert.Equal(t, "17031010100", out.Get(0, "geoid"))
	assert.Equal(t, "65000", out.Get(0, "median_income"))
	assert.Equal(t, "0.6", out.Get(0, "pct_car"))
	assert.Equal(t, "31.5", out.Get(0, "mean_travel_time_min"))
	assert.Equal(t, "Census Tract 101", out.Get(0, "tract_name"))

	// tract with no vehicles row keeps its row, vehicle fields null
	assert.Equal(t, "17031990000", out.Get(1, "geoid"))
	assert.Equal(t, "", out.Get(1, "hh_total"))
	assert.Equal(t, "", out.Get(1, "pct_hh_no_vehicle"))
	assert.Equal(t, "0.25", out.Get(1, "pct_car"))

	assert.Equal(t, "20", out.Get(2, "mean_travel_time_min"))

	assert.Equal(t, 3, st.AnchorRows)
	assert.Equal(t, 2, st.Matched["means_transport_clean"])
	assert.Equal(t, 1, st.Matched["vehicles_available_clean"])
	assert.Equal(t, 2, st.Matched["travel_time_clean"])
}

func TestJoinKeepsOneNameColumn(t *testing.T) {
	out, _, err := Join(income(), []*table.Table{transport(), vehicles(), travel()}, nil)
	require.NoError(t, err)
	n := 0
	for _, c := range out.Columns {
		if c == dataset.NameColumn {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestJoinRowCountEqualsAnchor(t *testing.T) {
	anchor := income()
	out, _, err := Join(anchor, []*table.Table{transport()}, nil)
	require.NoError(t, err)
	assert.Equal(t, anchor.Len(), out.Len())

	out, _, err = Join(anchor, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, anchor.Len(), out.Len())
	assert.Equal(t, anchor.Columns, out.Columns)
}

func TestJoinRejectsDuplicateKeys(t *testing.T) {
	dupRight := vehicles()
	dupRight.Append([]string{"17031010100", "again", "10", "0.1"})
	_, _, err := Join(income(), []*table.Table{dupRight}, nil)
	var dk *table.DuplicateKeyError
	require.True(t, errors.As(err, &dk), "got %v", err)
	assert.Equal(t, "17031010100", dk.Key)

	dupAnchor := income()
	dupAnchor.Append([]string{"17031990000", "again", "1"})
	_, _, err = Join(dupAnchor, nil, nil)
	assert.True(t, errors.As(err, &dk))
}

func TestJoinRejectsColumnClash(t *testing.T) {
	clash := table.New("bad", []string{"geoid", "median_income"})
	clash.Append([]string{"17031010100", "1"})
	_, _, err := Join(income(), []*table.Table{clash}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "median_income")
}

func TestJoinDoesNotMutateInputs(t *testing.T) {
	anchor := income()
	right := transport()
	_, _, err := Join(anchor, []*table.Table{right}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"geoid", "tract_name", "median_income"}, anchor.Columns)
	assert.Len(t, anchor.Rows[0], 3)
	assert.Equal(t, "Tract 101 (transport)", right.Get(0, "tract_name"))
}

func TestBuildFile(t *testing.T) {
	dir := t.TempDir()
	for k, tb := range map[dataset.Kind]*table.Table{
		dataset.Income:    income(),
		dataset.Transport: transport(),
		dataset.Vehicles:  vehicles(),
		dataset.Travel:    travel(),
	} {
		s, _ := dataset.Lookup(k)
		require.NoError(t, table.WriteFile(filepath.Join(dir, s.CleanFile), tb))
	}
	out, _, path, err := BuildFile(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)
	assert.Equal(t, 3, out.Len())

	back, err := table.ReadFile(path, table.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, out.Columns, back.Columns)
	assert.Equal(t, out.Rows, back.Rows)
}

func TestBuildFileMissingInput(t *testing.T) {
	dir := t.TempDir()
	s, _ := dataset.Lookup(dataset.Income)
	require.NoError(t, table.WriteFile(filepath.Join(dir, s.CleanFile), income()))
	_, _, _, err := BuildFile(dir, nil)
	var fe *table.FormatError
	require.True(t, errors.As(err, &fe))
	_, statErr := os.Stat(filepath.Join(dir, FileName))
	assert.True(t, os.IsNotExist(statErr))
}
