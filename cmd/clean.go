package cmd

import (
	"fmt"
	"io"

	"github.com/KaramelBytes/tractmobility-cli/internal/dataset"
	"github.com/KaramelBytes/tractmobility-cli/internal/manifest"
	"github.com/spf13/cobra"
)

var cleanYear int

var cleanCmd = &cobra.Command{
	Use:   "clean [income|transport|vehicles|travel|ridership ...]",
	Short: "Clean raw extracts into per-dataset tables (default: all)",
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := dataset.AllKinds()
		if len(args) > 0 {
			kinds = kinds[:0:0]
			for _, a := range args {
				k, err := dataset.ParseKind(a)
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}
		}
		c := config()
		m, err := manifest.Load(c.ProcessedDir)
		if err != nil {
			return err
		}
		m.Begin("clean")
		if err := cleanDatasets(cmd.OutOrStdout(), kinds, m); err != nil {
			return err
		}
		return m.Save()
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().IntVar(&cleanYear, "year", 0, "ridership year to keep (overrides config)")
}

func ridershipSpec() dataset.RidershipSpec {
	spec := dataset.DefaultRidership()
	if y := config().RidershipYear; y > 0 {
		spec.Year = y
	}
	if cleanYear > 0 {
		spec.Year = cleanYear
	}
	return spec
}

// cleanDatasets cleans each kind in order, stopping at the first failure.
// Outputs already written stay on disk and are recorded in m.
func cleanDatasets(w io.Writer, kinds []dataset.Kind, m *manifest.Manifest) error {
	c := config()
	for _, k := range kinds {
		if k == dataset.Ridership {
			res, out, err := dataset.CleanRidershipFile(c.RawDir, c.ProcessedDir, ridershipSpec(), log)
			if err != nil {
				return fmt.Errorf("clean %s: %w", k, err)
			}
			fmt.Fprintf(w, "✓ %-10s %d raw rows → %d stations (blank keys %d, bad dates %d, bad rides %d, other years %d) → %s\n",
				k, res.RawRows, res.Table.Len(), res.BadKeys, res.BadDates, res.BadRides, res.OutsideYear, out)
			m.Record(string(k), out, res.Table.Len(), len(res.Table.Columns))
			continue
		}
		s, _ := dataset.Lookup(k)
		res, out, err := dataset.CleanFile(c.RawDir, c.ProcessedDir, s, log)
		if err != nil {
			return fmt.Errorf("clean %s: %w", k, err)
		}
		fmt.Fprintf(w, "✓ %-10s %d raw rows → %d tracts (metadata %d, other geographies %d) → %s\n",
			k, res.RawRows, res.Table.Len(), res.MetadataRows, res.OtherGeographies, out)
		for _, col := range res.Table.Columns {
			if n := res.NullCells[col]; n > 0 {
				log.Debug("null cells", "dataset", string(k), "column", col, "count", n)
			}
		}
		m.Record(string(k), out, res.Table.Len(), len(res.Table.Columns))
	}
	return nil
}
