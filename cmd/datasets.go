package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tractmobility-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List known datasets with their raw and cleaned files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, k := range dataset.TractKinds() {
			s, _ := dataset.Lookup(k)
			fmt.Fprintf(w, "%s: %s\n", k, s.Title)
			fmt.Fprintf(w, "  raw:   %s (skip %d rows, key %s)\n", s.RawFile, s.SkipRows, s.GeoColumn)
			fmt.Fprintf(w, "  clean: %s\n", s.CleanFile)
			for _, m := range s.Measures {
				if m.Divisor != 0 {
					fmt.Fprintf(w, "    %s ← %s / %g\n", m.Name, m.Source, m.Divisor)
				} else {
					fmt.Fprintf(w, "    %s ← %s\n", m.Name, m.Source)
				}
			}
			for _, r := range s.Ratios {
				fmt.Fprintf(w, "    %s = %s / %s\n", r.Name, r.Numerator, r.Denominator)
			}
		}
		spec := ridershipSpec()
		fmt.Fprintf(w, "%s: CTA daily station entries (year %d)\n", dataset.Ridership, spec.Year)
		fmt.Fprintf(w, "  raw:   %s\n", spec.RawFile)
		fmt.Fprintf(w, "  clean: %s\n", spec.CleanFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
