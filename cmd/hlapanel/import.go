package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/hlapanel/internal/duckdb"
)

func newImportCmd(g *globalOptions) *cobra.Command {
	var (
		sep  string
		afnd bool
	)

	cmd := &cobra.Command{
		Use:   "import <freq-table>",
		Short: "Load an allele frequency table into a DuckDB store",
		Long: `Load an allele frequency table into a persistent DuckDB store so later
'select' and 'populations' runs can read it with --db. Importing replaces the
store's contents. A file that is unchanged since its last import is skipped.`,
		Example: `  hlapanel import --db freq.duckdb hla_freq.tsv
  hlapanel import --db freq.duckdb --afnd afnd.tsv`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, map[string]string{keyDB: "db"}); err != nil {
				return err
			}
			dbPath := viper.GetString(keyDB)
			if dbPath == "" {
				return usagef("--db is required")
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var stats duckdb.ImportStats
			if afnd {
				stats, err = store.ImportAFND(args[0])
			} else {
				stats, err = store.ImportTable(args[0], sep)
			}
			if err != nil {
				return err
			}
			logImport(g.logger, args[0], stats)
			return nil
		},
	}

	cmd.Flags().String("db", "", "DuckDB store path")
	cmd.Flags().StringVar(&sep, "sep", "\t", "Frequency table column separator")
	cmd.Flags().BoolVar(&afnd, "afnd", false, "Input is an Allele Frequency Net Database dump")

	return cmd
}

func logImport(logger *zap.Logger, path string, stats duckdb.ImportStats) {
	if stats.Cached {
		logger.Info("frequency table unchanged since last import",
			zap.String("path", path),
			zap.Int64("rows", stats.Rows))
		return
	}
	logger.Info("imported frequency table",
		zap.String("path", path),
		zap.Int64("rows", stats.Rows),
		zap.Int("skipped", stats.Skipped))
}

func newPopulationsCmd(g *globalOptions) *cobra.Command {
	var sep string

	cmd := &cobra.Command{
		Use:   "populations [freq-table]",
		Short: "List the populations in a frequency table",
		Long: `List the populations of a frequency table or store with their row counts.
Population names are matched exactly by 'select --population'.`,
		Example: `  hlapanel populations hla_freq.tsv
  hlapanel populations --db freq.duckdb`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, map[string]string{keyDB: "db"}); err != nil {
				return err
			}
			dbPath := viper.GetString(keyDB)
			if len(args) == 0 && dbPath == "" {
				return usagef("a frequency table argument or --db is required")
			}

			// a table without a store is read into a throwaway in-memory store
			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				stats, err := store.ImportTable(args[0], sep)
				if err != nil {
					return err
				}
				logImport(g.logger, args[0], stats)
			}

			pops, err := store.Populations()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "POPULATION\tROWS")
			for _, p := range pops {
				fmt.Fprintf(tw, "%s\t%d\n", p.Population, p.Rows)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("db", "", "DuckDB store path")
	cmd.Flags().StringVar(&sep, "sep", "\t", "Frequency table column separator")

	return cmd
}
