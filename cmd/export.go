package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/tractmobility-cli/internal/export"
	"github.com/KaramelBytes/tractmobility-cli/internal/master"
	"github.com/KaramelBytes/tractmobility-cli/internal/table"
	"github.com/spf13/cobra"
)

var (
	exportDialect string
	exportDSN     string
	exportTable   string
	exportFile    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Load the master table into Postgres or ClickHouse",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config()
		dialect, dsn, name := c.ExportDialect, c.ExportDSN, c.ExportTable
		if exportDialect != "" {
			dialect = exportDialect
		}
		if exportDSN != "" {
			dsn = exportDSN
		}
		if exportTable != "" {
			name = exportTable
		}
		if dsn == "" {
			return errors.New("no DSN: pass --dsn or set export_dsn")
		}
		d, err := export.NewDialect(dialect)
		if err != nil {
			return err
		}
		path := exportFile
		if path == "" {
			path = filepath.Join(c.ProcessedDir, master.FileName)
		}
		t, err := table.ReadFile(path, table.ReadOptions{})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := d.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		n, err := export.Load(ctx, db, d, name, t, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ exported %d rows to %s table %s\n", n, d.Name(), name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportDialect, "dialect", "", "postgres or clickhouse (overrides config)")
	exportCmd.Flags().StringVar(&exportDSN, "dsn", "", "database connection string (overrides config)")
	exportCmd.Flags().StringVar(&exportTable, "table", "", "destination table name (overrides config)")
	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "CSV to export (default: master table)")
}
