package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tractmobility-cli/internal/dataset"
	"github.com/KaramelBytes/tractmobility-cli/internal/manifest"
	"github.com/spf13/cobra"
)

var pipelineCmd = &cobra.Command{
	Use:   "run",
	Short: "Clean every dataset, then build the master table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config()
		m, err := manifest.Load(c.ProcessedDir)
		if err != nil {
			return err
		}
		id := m.Begin("run")
		log.Info("pipeline start", "run_id", id, "raw_dir", c.RawDir, "processed_dir", c.ProcessedDir)

		w := cmd.OutOrStdout()
		err = cleanDatasets(w, dataset.AllKinds(), m)
		if err == nil {
			err = joinMaster(w, m)
		}
		// record whatever was written, even on failure
		if serr := m.Save(); serr != nil {
			if err != nil {
				log.Error("manifest not saved", "run_id", id, "err", serr)
			} else {
				err = serr
			}
		}
		if err != nil {
			return err
		}
		for _, o := range m.Sorted() {
			if o.RunID == id {
				fmt.Fprintf(w, "  %-32s %6d rows %3d columns\n", o.Name, o.Rows, o.Columns)
			}
		}
		fmt.Fprintf(w, "✓ run %s complete\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}
