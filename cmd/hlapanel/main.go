// Package main provides the hlapanel command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/hlapanel/internal/selection"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	configName = ".hlapanel"
	envPrefix  = "HLAPANEL"
)

// Config keys
const (
	keyMaxClassI         = "selection.max_class_i"
	keyMaxClassII        = "selection.max_class_ii"
	keyCoverage          = "selection.coverage"
	keyStrategy          = "selection.strategy"
	keyCoverageMetric    = "selection.coverage_metric"
	keyPopulationWeights = "selection.population_weights"
	keyDB                = "data.db"
	keyLogLevel          = "log.level"
)

// globalOptions holds state shared by all subcommands.
type globalOptions struct {
	configFile string
	verbose    bool
	logger     *zap.Logger
}

// usageError marks an error caused by how the tool was invoked.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// usageArgs wraps a positional argument validator so its failures are usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		ue *usageError
		ce *selection.ConfigError
	)
	if errors.As(err, &ue) || errors.As(err, &ce) {
		return ExitUsage
	}
	return ExitError
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "hlapanel",
		Short: "HLA allele panel selection",
		Long: `hlapanel selects Class I and Class II HLA allele panels that maximize estimated
population coverage, restricted to alleles supported by NetMHCpan and NetMHCIIpan.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(g.configFile); err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), viper.GetString(keyLogLevel), g.verbose)
			if err != nil {
				return err
			}
			g.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = g.logger.Sync()
		},
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	cmd.PersistentFlags().StringVar(&g.configFile, "config", "", "Config file (default ~/.hlapanel.yaml)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newSelectCmd(g))
	cmd.AddCommand(newImportCmd(g))
	cmd.AddCommand(newPopulationsCmd(g))
	cmd.AddCommand(newConvertCmd(g))
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initConfig points viper at the config file and environment. A missing
// config file is not an error; 'config set' creates it.
func initConfig(cfgFile string) error {
	viper.Reset()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// newLogger builds a console logger writing to w. verbose forces debug level.
func newLogger(w io.Writer, level string, verbose bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(level); err != nil {
			return nil, usagef("invalid %s %q: %v", keyLogLevel, level, err)
		}
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// bindFlags binds config keys to the named flags of cmd so explicitly set
// flags override config file and environment values.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}
