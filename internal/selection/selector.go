package selection

import (
	"go.uber.org/zap"

	"github.com/inodb/hlapanel/internal/freq"
	"github.com/inodb/hlapanel/internal/hla"
	"github.com/inodb/hlapanel/internal/whitelist"
)

// Selector runs the full selection pipeline: population filter, whitelist
// filter, then coverage optimization.
type Selector struct {
	cfg    *Config
	logger *zap.Logger
}

// NewSelector creates a selector for the given configuration.
func NewSelector(cfg *Config) *Selector {
	return &Selector{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (s *Selector) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Config returns the selector's configuration.
func (s *Selector) Config() *Config {
	return s.cfg
}

// Run selects the Class I and Class II panels. Configuration problems are
// returned as *ConfigError before any selection work starts. Omitted loci and
// coverage shortfalls are reported in the result and logged as warnings.
// Run does not modify records.
func (s *Selector) Run(records []freq.Record, lists whitelist.Set) (*Result, error) {
	popRecords, err := FilterPopulations(records, s.cfg)
	if err != nil {
		return nil, err
	}
	s.logger.Info("filtered frequency table to target populations",
		zap.Strings("populations", s.cfg.TargetPopulations()),
		zap.Int("records", len(popRecords)))

	eligible, err := FilterWhitelist(popRecords, lists)
	if err != nil {
		return nil, err
	}

	before := countByClass(popRecords)
	after := countByClass(eligible)
	for _, class := range hla.Classes {
		if before[class] > 0 && after[class] == 0 {
			s.logger.Warn("no alleles from the frequency table are in the whitelist",
				zap.Stringer("class", class),
				zap.Int("whitelist_size", lists[class].Len()))
		}
		s.logger.Debug("whitelist filter",
			zap.Stringer("class", class),
			zap.Int("before", before[class]),
			zap.Int("after", after[class]))
	}

	res := Optimize(eligible, s.cfg)

	for _, cr := range res.Classes {
		for _, o := range cr.Omitted {
			s.logger.Warn("locus omitted",
				zap.Stringer("class", o.Class),
				zap.String("locus", string(o.Locus)),
				zap.Error(o))
		}
		for _, sf := range cr.Shortfalls {
			s.logger.Warn("coverage target not reached",
				zap.Stringer("class", sf.Class),
				zap.String("locus", string(sf.Locus)),
				zap.String("metric", string(sf.Metric)),
				zap.Float64("achieved", sf.Achieved),
				zap.Float64("target", sf.Target))
		}
		s.logger.Info("selected panel",
			zap.Stringer("class", cr.Class),
			zap.Int("alleles", len(cr.Selected)),
			zap.Int("max", cr.Max),
			zap.Float64("coverage", cr.Coverage))
	}

	return res, nil
}

func countByClass(records []freq.Record) map[hla.Class]int {
	counts := make(map[hla.Class]int)
	for _, r := range records {
		counts[r.Locus.Class()]++
	}
	return counts
}
