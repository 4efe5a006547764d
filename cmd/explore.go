package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/tractmobility-cli/internal/analysis"
	"github.com/KaramelBytes/tractmobility-cli/internal/master"
	"github.com/spf13/cobra"
)

var (
	exploreHead int
	exploreCorr bool
)

var exploreCmd = &cobra.Command{
	Use:   "explore [file]",
	Short: "Print shape, head rows, summary statistics and missing values for a table",
	Long: `Describe a cleaned or master CSV. With no argument the master table in the
processed directory is described. The file is never modified.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config()
		path := filepath.Join(c.ProcessedDir, master.FileName)
		if len(args) == 1 {
			path = args[0]
		}
		opt := analysis.DefaultOptions()
		opt.SampleRows = c.SampleRows
		if cmd.Flags().Changed("head") {
			opt.SampleRows = exploreHead
		}
		opt.Correlations = exploreCorr
		rep, err := analysis.AnalyzeCSV(path, opt)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rep.Markdown())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exploreCmd.Flags().IntVar(&exploreHead, "head", 5, "number of head rows to show")
	exploreCmd.Flags().BoolVar(&exploreCorr, "corr", false, "include pairwise correlations among numeric columns")
}
