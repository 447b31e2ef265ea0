package selection

import (
	"fmt"

	"github.com/inodb/hlapanel/internal/hla"
)

// ConfigError reports an invalid or unusable selection parameter. It is fatal:
// no selection work is done once one is returned.
type ConfigError struct {
	Param   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Message)
}

// InsufficientCandidatesError reports a locus with no whitelisted alleles in
// the target populations. The locus is omitted and the rest of the class is
// still selected.
type InsufficientCandidatesError struct {
	Class hla.Class
	Locus hla.Locus
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("%s: no eligible alleles at locus HLA-%s", e.Class, e.Locus)
}

// CoverageUnreachableError is advisory: the best panel for a locus stays below
// the coverage target. It is reported in the result, never returned as a failure.
type CoverageUnreachableError struct {
	Class    hla.Class
	Locus    hla.Locus
	Metric   CoverageMetric
	Achieved float64
	Target   float64
}

func (e *CoverageUnreachableError) Error() string {
	return fmt.Sprintf("%s: locus HLA-%s reaches %s coverage %.4f, below target %.4f",
		e.Class, e.Locus, e.Metric, e.Achieved, e.Target)
}

// Shortfall returns how far the achieved coverage is below the target.
func (e *CoverageUnreachableError) Shortfall() float64 {
	return e.Target - e.Achieved
}
