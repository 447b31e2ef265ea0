package selection

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/hlapanel/internal/hla"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(DefaultOptions("Northern Europe"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Northern Europe"}, cfg.TargetPopulations())
	assert.Equal(t, DefaultMaxClassI, cfg.MaxPerClass(hla.ClassI))
	assert.Equal(t, DefaultMaxClassII, cfg.MaxPerClass(hla.ClassII))
	assert.Equal(t, DefaultMinCoverage, cfg.MinCoverage())
	assert.Equal(t, StrategyJoint, cfg.Strategy())
	assert.Equal(t, MetricAllele, cfg.CoverageMetric())
	assert.Equal(t, 1.0, cfg.Weight("Northern Europe"))
	assert.Equal(t, 0.0, cfg.Weight("Japan"))
}

func TestNewConfig_EmptyStrategyAndMetricDefault(t *testing.T) {
	opts := DefaultOptions("X")
	opts.Strategy = ""
	opts.CoverageMetric = ""
	cfg, err := NewConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, DefaultStrategy, cfg.Strategy())
	assert.Equal(t, DefaultCoverageMetric, cfg.CoverageMetric())
}

func TestNewConfig_DeduplicatesPopulations(t *testing.T) {
	cfg, err := NewConfig(DefaultOptions("B", "A", "B", "C", "A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, cfg.TargetPopulations())
	assert.InDelta(t, 1.0/3, cfg.Weight("A"), 1e-15)
}

func TestNewConfig_Weights(t *testing.T) {
	opts := DefaultOptions("P1", "P2", "P3")
	opts.PopulationWeights = map[string]float64{"P1": 3, "P2": 0, "other": 10}
	cfg, err := NewConfig(opts)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, cfg.Weight("P1"), 1e-15)
	assert.Equal(t, 0.0, cfg.Weight("P2"))
	assert.InDelta(t, 0.25, cfg.Weight("P3"), 1e-15, "unlisted populations weigh 1")
	assert.Equal(t, 0.0, cfg.Weight("other"))
}

func TestNewConfig_ReturnedPopulationsAreCopies(t *testing.T) {
	cfg, err := NewConfig(DefaultOptions("P1"))
	require.NoError(t, err)
	pops := cfg.TargetPopulations()
	pops[0] = "changed"
	assert.Equal(t, []string{"P1"}, cfg.TargetPopulations())
}

func TestNewConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		param  string
	}{
		{"no populations", func(o *Options) { o.TargetPopulations = nil }, "target_populations"},
		{"empty population list", func(o *Options) { o.TargetPopulations = []string{} }, "target_populations"},
		{"blank population", func(o *Options) { o.TargetPopulations = []string{"A", ""} }, "target_populations[1]"},
		{"zero class I cap", func(o *Options) { o.MaxClassI = 0 }, "max_class_i"},
		{"negative class II cap", func(o *Options) { o.MaxClassII = -1 }, "max_class_ii"},
		{"zero coverage", func(o *Options) { o.MinCoverage = 0 }, "min_coverage"},
		{"coverage above one", func(o *Options) { o.MinCoverage = 1.5 }, "min_coverage"},
		{"NaN coverage", func(o *Options) { o.MinCoverage = math.NaN() }, "min_coverage"},
		{"unknown strategy", func(o *Options) { o.Strategy = "random" }, "strategy"},
		{"unknown metric", func(o *Options) { o.CoverageMetric = "genotype" }, "coverage_metric"},
		{"negative weight", func(o *Options) { o.PopulationWeights = map[string]float64{"A": -1} }, "population_weights[A]"},
		{"zero total weight", func(o *Options) { o.PopulationWeights = map[string]float64{"A": 0} }, "population_weights"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions("A")
			tt.mutate(&opts)

			_, err := NewConfig(opts)
			require.Error(t, err)

			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "expected ConfigError, got %T", err)
			assert.Equal(t, tt.param, ce.Param)
			assert.True(t, strings.Contains(err.Error(), tt.param), err.Error())
		})
	}
}

func TestNewConfig_CoverageOfOneAllowed(t *testing.T) {
	opts := DefaultOptions("A")
	opts.MinCoverage = 1
	_, err := NewConfig(opts)
	assert.NoError(t, err)
}
