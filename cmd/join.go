package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/KaramelBytes/tractmobility-cli/internal/manifest"
	"github.com/KaramelBytes/tractmobility-cli/internal/master"
	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join the cleaned tract tables into the master table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(config().ProcessedDir)
		if err != nil {
			return err
		}
		m.Begin("join")
		if err := joinMaster(cmd.OutOrStdout(), m); err != nil {
			return err
		}
		return m.Save()
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
}

func joinMaster(w io.Writer, m *manifest.Manifest) error {
	out, st, path, err := master.BuildFile(config().ProcessedDir, log)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	fmt.Fprintf(w, "✓ master     %d tracts x %d columns → %s\n", out.Len(), len(out.Columns), path)
	names := make([]string, 0, len(st.Matched))
	for name := range st.Matched {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if n := st.Matched[name]; n < st.AnchorRows {
			fmt.Fprintf(w, "⚠ %s matched %d of %d tracts\n", name, n, st.AnchorRows)
		}
	}
	m.Record("master", path, out.Len(), len(out.Columns))
	return nil
}
