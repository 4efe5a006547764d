package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/tractmobility-cli/internal/analysis"
	"github.com/KaramelBytes/tractmobility-cli/internal/manifest"
	"github.com/KaramelBytes/tractmobility-cli/internal/master"
	"github.com/KaramelBytes/tractmobility-cli/internal/table"
	"github.com/spf13/cobra"
)

// QuartilesFileName is the default assignments output.
const QuartilesFileName = "tract_income_quartiles.csv"

var quartilesOutput string

var quartilesCmd = &cobra.Command{
	Use:   "quartiles",
	Short: "Summarize mobility by income quartile and write tract assignments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config()
		mt, err := table.ReadFile(filepath.Join(c.ProcessedDir, master.FileName), table.ReadOptions{})
		if err != nil {
			return err
		}
		rep, err := analysis.IncomeQuartiles(mt)
		if err != nil {
			return err
		}
		out := quartilesOutput
		if out == "" {
			out = filepath.Join(c.ProcessedDir, QuartilesFileName)
		}
		if err := table.WriteFile(out, rep.Assignments); err != nil {
			return fmt.Errorf("write quartiles: %w", err)
		}

		m, err := manifest.Load(c.ProcessedDir)
		if err != nil {
			return err
		}
		m.Begin("quartiles")
		m.Record("quartiles", out, rep.Assignments.Len(), len(rep.Assignments.Columns))
		if err := m.Save(); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprint(w, rep.Text())
		fmt.Fprintf(w, "✓ quartile assignments (%d tracts) → %s\n", rep.Assignments.Len(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quartilesCmd)
	quartilesCmd.Flags().StringVarP(&quartilesOutput, "output", "o", "", "assignments CSV path (default processed_dir/"+QuartilesFileName+")")
}
