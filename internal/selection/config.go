// Package selection picks HLA allele panels that maximize estimated population
// coverage across a set of target populations.
package selection

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/inodb/hlapanel/internal/hla"
)

// Strategy controls how the per-class allele cap is shared between loci.
type Strategy string

const (
	// StrategyJoint lets every locus pick up to the full class cap, then trims
	// the lowest-gain picks across the class until the cap holds.
	StrategyJoint Strategy = "joint"
	// StrategyPerLocus splits the class cap evenly between loci up front.
	StrategyPerLocus Strategy = "per-locus"
)

// CoverageMetric selects the running value compared against the coverage target.
type CoverageMetric string

const (
	// MetricAllele stops a locus once the summed aggregate allele frequency of
	// its picks reaches the target.
	MetricAllele CoverageMetric = "allele"
	// MetricPhenotype stops a locus once the running phenotype coverage
	// estimate reaches the target.
	MetricPhenotype CoverageMetric = "phenotype"
)

// Defaults used when options leave a value unset.
const (
	DefaultMaxClassI      = 20
	DefaultMaxClassII     = 15
	DefaultMinCoverage    = 0.9
	DefaultStrategy       = StrategyJoint
	DefaultCoverageMetric = MetricAllele
)

// Options is the mutable input used to build a Config.
type Options struct {
	TargetPopulations []string           `json:"target_populations" validate:"required,min=1,dive,required"`
	MaxClassI         int                `json:"max_class_i" validate:"gt=0"`
	MaxClassII        int                `json:"max_class_ii" validate:"gt=0"`
	MinCoverage       float64            `json:"min_coverage" validate:"gt=0,lte=1"`
	PopulationWeights map[string]float64 `json:"population_weights" validate:"omitempty,dive,gte=0"`
	Strategy          Strategy           `json:"strategy" validate:"omitempty,oneof=joint per-locus"`
	CoverageMetric    CoverageMetric     `json:"coverage_metric" validate:"omitempty,oneof=allele phenotype"`
}

// DefaultOptions returns options with the default caps and coverage target.
func DefaultOptions(populations ...string) Options {
	return Options{
		TargetPopulations: populations,
		MaxClassI:         DefaultMaxClassI,
		MaxClassII:        DefaultMaxClassII,
		MinCoverage:       DefaultMinCoverage,
		Strategy:          DefaultStrategy,
		CoverageMetric:    DefaultCoverageMetric,
	}
}

// Config is a validated, immutable selection configuration.
type Config struct {
	populations []string
	maxPerClass map[hla.Class]int
	minCoverage float64
	weights     map[string]float64 // normalized over populations, sums to 1
	strategy    Strategy
	metric      CoverageMetric
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// NewConfig validates opts and builds a Config. Duplicate target populations
// are dropped keeping first-seen order. Populations missing from
// PopulationWeights weigh 1. Every failure is a *ConfigError.
func NewConfig(opts Options) (*Config, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, configErrorFrom(err)
	}

	cfg := &Config{
		maxPerClass: map[hla.Class]int{
			hla.ClassI:  opts.MaxClassI,
			hla.ClassII: opts.MaxClassII,
		},
		minCoverage: opts.MinCoverage,
		strategy:    opts.Strategy,
		metric:      opts.CoverageMetric,
		weights:     make(map[string]float64),
	}
	if cfg.strategy == "" {
		cfg.strategy = DefaultStrategy
	}
	if cfg.metric == "" {
		cfg.metric = DefaultCoverageMetric
	}

	seen := make(map[string]bool)
	for _, p := range opts.TargetPopulations {
		if !seen[p] {
			seen[p] = true
			cfg.populations = append(cfg.populations, p)
		}
	}

	var total float64
	for _, p := range cfg.populations {
		w, ok := opts.PopulationWeights[p]
		if !ok {
			w = 1
		}
		cfg.weights[p] = w
		total += w
	}
	if total <= 0 {
		return nil, &ConfigError{
			Param:   "population_weights",
			Message: "weights of the target populations sum to zero",
		}
	}
	for p, w := range cfg.weights {
		cfg.weights[p] = w / total
	}

	return cfg, nil
}

func configErrorFrom(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigError{Param: "options", Message: err.Error()}
	}
	e := verrs[0]
	return &ConfigError{Param: e.Field(), Message: friendlyMessage(e)}
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s, got %v", e.Param(), e.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s, got %v", e.Param(), e.Value())
	case "lte":
		return fmt.Sprintf("must be at most %s, got %v", e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", e.Param(), e.Value())
	}
	return fmt.Sprintf("failed %q validation", e.Tag())
}

// TargetPopulations returns the target populations in order.
func (c *Config) TargetPopulations() []string {
	return append([]string(nil), c.populations...)
}

// MaxPerClass returns the allele cap for class.
func (c *Config) MaxPerClass(class hla.Class) int {
	return c.maxPerClass[class]
}

// MinCoverage returns the per-locus coverage target.
func (c *Config) MinCoverage() float64 {
	return c.minCoverage
}

// Weight returns the normalized weight of a target population, 0 for others.
func (c *Config) Weight(population string) float64 {
	return c.weights[population]
}

// Strategy returns the cap sharing strategy.
func (c *Config) Strategy() Strategy {
	return c.strategy
}

// CoverageMetric returns the metric used for the coverage target.
func (c *Config) CoverageMetric() CoverageMetric {
	return c.metric
}
