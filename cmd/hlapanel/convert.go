package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/hlapanel/internal/duckdb"
)

func newConvertCmd(g *globalOptions) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "convert <afnd-dump>",
		Short: "Convert an AFND dump to an allele frequency table",
		Long: `Convert an Allele Frequency Net Database dump (columns group, gene, allele,
alleles_over_2n, population) to the tab-separated frequency table read by
'select'. Only HLA rows of the loci A, B, C, DRB1, DQB1 and DPB1 with a numeric
frequency are kept, and alleles are written as HLA-<gene>*<allele>.`,
		Example: `  hlapanel convert -o hla_freq.tsv afnd.tsv`,
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputPath == "" {
				return usagef("--output is required")
			}

			store, err := duckdb.Open("")
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.ConvertAFND(args[0], outputPath)
			if err != nil {
				return err
			}
			g.logger.Info("converted AFND dump",
				zap.String("input", args[0]),
				zap.String("output", outputPath),
				zap.Int64("rows", n))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output frequency table path")

	return cmd
}
