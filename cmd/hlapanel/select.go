package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/hlapanel/internal/duckdb"
	"github.com/inodb/hlapanel/internal/freq"
	"github.com/inodb/hlapanel/internal/hla"
	"github.com/inodb/hlapanel/internal/output"
	"github.com/inodb/hlapanel/internal/selection"
	"github.com/inodb/hlapanel/internal/whitelist"
)

type selectOptions struct {
	freqTable   string
	sep         string
	populations []string
	netmhcpan   string
	netmhciipan string
	outDir      string
	output      string
	noSummary   bool
}

func newSelectCmd(g *globalOptions) *cobra.Command {
	opts := &selectOptions{}

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select HLA allele panels maximizing population coverage",
		Long: `Select Class I and Class II allele panels from an allele frequency table.

Alleles are restricted to the target populations and to the alleles listed in
the NetMHCpan and NetMHCIIpan allele files, then picked greedily per locus by
marginal phenotype coverage until the coverage target or the class cap is hit.

The selected table is written to --output (default stdout) and the allele lists
for the prediction tools to selected_classI_alleles.txt and
selected_classII_alleles.txt in --out-dir.`,
		Example: `  hlapanel select --freq-table hla_freq.tsv --population "USA NMDP European Caucasian" \
    --netmhcpan-alleles MHC_allele_names.txt --netmhciipan-alleles alleles_name.txt

  # use a table imported with 'hlapanel import'
  hlapanel select --db freq.duckdb --netmhcpan-alleles MHC_allele_names.txt \
    --netmhciipan-alleles alleles_name.txt --max-class-i 10 --coverage 0.8`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, map[string]string{
				keyMaxClassI:         "max-class-i",
				keyMaxClassII:        "max-class-ii",
				keyCoverage:          "coverage",
				keyStrategy:          "strategy",
				keyCoverageMetric:    "coverage-metric",
				keyPopulationWeights: "weight",
				keyDB:                "db",
			}); err != nil {
				return err
			}
			return runSelect(cmd, g, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.freqTable, "freq-table", "", "Allele frequency table (columns locus, allele, frequency, optional population; gzip ok, '-' for stdin)")
	f.StringVar(&opts.sep, "sep", "\t", "Frequency table column separator")
	f.StringArrayVar(&opts.populations, "population", nil, "Target population (repeatable; default every population in the table)")
	f.StringArray("weight", nil, "Population weight as POPULATION=WEIGHT (repeatable; default 1)")
	f.Int("max-class-i", selection.DefaultMaxClassI, "Maximum number of Class I alleles")
	f.Int("max-class-ii", selection.DefaultMaxClassII, "Maximum number of Class II alleles")
	f.Float64("coverage", selection.DefaultMinCoverage, "Per-locus coverage target in (0,1]")
	f.String("strategy", string(selection.DefaultStrategy), "Cap sharing between loci: joint or per-locus")
	f.String("coverage-metric", string(selection.DefaultCoverageMetric), "Value compared with --coverage: allele or phenotype")
	f.StringVar(&opts.netmhcpan, "netmhcpan-alleles", "", "NetMHCpan allele list (MHC_allele_names.txt)")
	f.StringVar(&opts.netmhciipan, "netmhciipan-alleles", "", "NetMHCIIpan allele list (alleles_name.txt)")
	f.StringVar(&opts.outDir, "out-dir", ".", "Directory for the prediction tool allele lists")
	f.StringVarP(&opts.output, "output", "o", "", "Selected allele table (default: stdout)")
	f.String("db", "", "DuckDB frequency store; --freq-table is imported into it when given")
	f.BoolVar(&opts.noSummary, "no-summary", false, "Do not print the coverage summary to stderr")

	return cmd
}

func runSelect(cmd *cobra.Command, g *globalOptions, opts *selectOptions) error {
	logger := g.logger.With(zap.String("run_id", uuid.NewString()))

	if opts.netmhcpan == "" || opts.netmhciipan == "" {
		return usagef("--netmhcpan-alleles and --netmhciipan-alleles are required")
	}
	dbPath := viper.GetString(keyDB)
	if opts.freqTable == "" && dbPath == "" {
		return usagef("--freq-table or --db is required")
	}

	weights, err := parseWeights(viper.GetStringSlice(keyPopulationWeights))
	if err != nil {
		return err
	}

	records, err := loadRecords(logger, opts.freqTable, opts.sep, dbPath, opts.populations)
	if err != nil {
		return err
	}

	pops := opts.populations
	if len(pops) == 0 {
		pops = freq.Populations(records)
	}

	cfg, err := selection.NewConfig(selection.Options{
		TargetPopulations: pops,
		MaxClassI:         viper.GetInt(keyMaxClassI),
		MaxClassII:        viper.GetInt(keyMaxClassII),
		MinCoverage:       viper.GetFloat64(keyCoverage),
		PopulationWeights: weights,
		Strategy:          selection.Strategy(viper.GetString(keyStrategy)),
		CoverageMetric:    selection.CoverageMetric(viper.GetString(keyCoverageMetric)),
	})
	if err != nil {
		return err
	}

	lists, err := loadWhitelists(opts.netmhcpan, opts.netmhciipan)
	if err != nil {
		return err
	}
	for _, class := range hla.Classes {
		logger.Debug("loaded allele whitelist",
			zap.Stringer("class", class),
			zap.Int("alleles", lists[class].Len()))
	}

	sel := selection.NewSelector(cfg)
	sel.SetLogger(logger)
	res, err := sel.Run(records, lists)
	if err != nil {
		return err
	}

	tables := output.Emit(res)
	if err := writeTables(cmd.OutOrStdout(), opts.output, tables); err != nil {
		return err
	}

	paths, err := output.WriteAlleleListFiles(opts.outDir, tables)
	if err != nil {
		return err
	}
	for _, p := range paths {
		logger.Info("wrote allele list", zap.String("path", p))
	}

	if !opts.noSummary {
		return output.WriteSummary(cmd.ErrOrStderr(), res)
	}
	return nil
}

// loadRecords reads frequency records from the table, the store, or the table
// imported into the store. With a store, only the target populations are read.
func loadRecords(logger *zap.Logger, table, sep, dbPath string, populations []string) ([]freq.Record, error) {
	if dbPath == "" {
		p, err := freq.NewParser(table, sep)
		if err != nil {
			return nil, err
		}
		defer p.Close()
		records, err := p.ReadAll()
		if err != nil {
			return nil, err
		}
		logger.Info("read frequency table",
			zap.String("path", table),
			zap.Int("records", len(records)),
			zap.Int("skipped", p.Skipped()))
		return records, nil
	}

	store, err := duckdb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if table != "" {
		stats, err := store.ImportTable(table, sep)
		if err != nil {
			return nil, err
		}
		logImport(logger, table, stats)
	}

	records, err := store.Records(populations)
	if err != nil {
		return nil, err
	}
	logger.Info("read frequency store",
		zap.String("db", dbPath),
		zap.Int("records", len(records)))
	return records, nil
}

func loadWhitelists(netmhcpan, netmhciipan string) (whitelist.Set, error) {
	classI, err := whitelist.LoadNetMHCpan(netmhcpan)
	if err != nil {
		return nil, err
	}
	classII, err := whitelist.LoadNetMHCIIpan(netmhciipan)
	if err != nil {
		return nil, err
	}
	return whitelist.Set{hla.ClassI: classI, hla.ClassII: classII}, nil
}

// parseWeights parses POPULATION=WEIGHT pairs. The population is everything
// before the last '=' so names may contain '='.
func parseWeights(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	weights := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		i := strings.LastIndex(pair, "=")
		if i <= 0 {
			return nil, usagef("invalid population weight %q: expected POPULATION=WEIGHT", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(pair[i+1:]), 64)
		if err != nil {
			return nil, usagef("invalid population weight %q: %v", pair, err)
		}
		weights[pair[:i]] = w
	}
	return weights, nil
}

func writeTables(stdout io.Writer, path string, ts output.Tables) error {
	out := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w := output.NewTabWriter(out)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, class := range hla.Classes {
		if err := w.WriteTable(ts.Table(class)); err != nil {
			return fmt.Errorf("writing %s table: %w", class, err)
		}
	}
	return w.Flush()
}
