package selection

import (
	"sort"

	"github.com/inodb/hlapanel/internal/freq"
	"github.com/inodb/hlapanel/internal/hla"
)

// tieEpsilon is the tolerance below which two gains or frequencies are treated as equal.
const tieEpsilon = 1e-12

// SelectedAllele is one allele of a selected panel.
type SelectedAllele struct {
	Locus  hla.Locus
	Allele string // canonical form, e.g. "HLA-A*24:01"
	Key    hla.Key

	// AggregateFrequency is the weighted mean allele frequency over the
	// target populations.
	AggregateFrequency float64
	// PhenotypeFrequency is the weighted mean phenotype frequency
	// 1-(1-f)^2 over the target populations; it is the selection score.
	PhenotypeFrequency float64
	// MarginalGain is the coverage the allele added when it was picked.
	MarginalGain float64

	ExternalName string
}

// LocusSummary describes how one locus fared during selection.
type LocusSummary struct {
	Locus      hla.Locus
	Candidates int
	Limit      int // maximum picks allowed for the locus
	Selected   int
	Trimmed    int // picks removed to honor the class cap

	// AlleleCoverage is the summed aggregate frequency of the kept picks.
	AlleleCoverage float64
	// PhenotypeCoverage is the running coverage estimate of the kept picks.
	PhenotypeCoverage float64
}

// ClassResult is the selected panel for one HLA class and its diagnostics.
type ClassResult struct {
	Class    hla.Class
	Max      int
	Selected []SelectedAllele // loci in canonical order, each in pick order
	Loci     []LocusSummary

	// Coverage estimates the fraction of individuals carrying at least one
	// selected allele at any locus of the class.
	Coverage float64

	Omitted    []*InsufficientCandidatesError
	Shortfalls []*CoverageUnreachableError
}

// Result holds the panels of both classes.
type Result struct {
	Classes []*ClassResult
}

// Class returns the result for class, or nil.
func (r *Result) Class(class hla.Class) *ClassResult {
	for _, cr := range r.Classes {
		if cr.Class == class {
			return cr
		}
	}
	return nil
}

// PhenotypeFrequency converts an allele frequency to the probability that an
// individual carries at least one copy, assuming Hardy-Weinberg equilibrium.
func PhenotypeFrequency(f float64) float64 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 1
	}
	q := 1 - f
	return 1 - q*q
}

type candidate struct {
	key       hla.Key
	allele    string
	external  string
	score     float64
	aggregate float64
}

type pick struct {
	candidate
	gain float64
}

// Optimize selects the allele panel of each class from records that have
// already been filtered to the target populations and whitelists. It is a pure
// function of its inputs and safe to call concurrently.
func Optimize(records []freq.Record, cfg *Config) *Result {
	byLocus := candidatesByLocus(records, cfg)

	res := &Result{}
	for _, class := range hla.Classes {
		res.Classes = append(res.Classes, optimizeClass(class, byLocus, cfg))
	}
	return res
}

// candidatesByLocus aggregates records into one scored candidate per allele.
// Several records for the same population and allele keep the highest frequency;
// a population without a record for an allele contributes 0.
func candidatesByLocus(records []freq.Record, cfg *Config) map[hla.Locus][]candidate {
	type entry struct {
		allele   string
		external string
		freqs    map[string]float64
	}
	entries := make(map[hla.Key]*entry)

	for _, r := range records {
		if cfg.Weight(r.Population) == 0 {
			continue
		}
		k, ok := hla.Normalize(r.Allele)
		if !ok || k.Locus != r.Locus {
			continue
		}
		e, ok := entries[k]
		if !ok {
			e = &entry{allele: k.Canonical(), external: r.ExternalName, freqs: make(map[string]float64)}
			entries[k] = e
		}
		if e.external == "" {
			e.external = r.ExternalName
		}
		if f, seen := e.freqs[r.Population]; !seen || r.Frequency > f {
			e.freqs[r.Population] = r.Frequency
		}
	}

	out := make(map[hla.Locus][]candidate)
	for k, e := range entries {
		c := candidate{key: k, allele: e.allele, external: e.external}
		if c.external == "" {
			c.external = k.ToolName()
		}
		// Iterate in config order so float sums are reproducible.
		for _, p := range cfg.populations {
			f := e.freqs[p]
			w := cfg.Weight(p)
			c.score += w * PhenotypeFrequency(f)
			c.aggregate += w * f
		}
		c.score = clamp01(c.score)
		c.aggregate = clamp01(c.aggregate)
		out[k.Locus] = append(out[k.Locus], c)
	}
	for l := range out {
		cands := out[l]
		sort.Slice(cands, func(i, j int) bool { return cands[i].allele < cands[j].allele })
	}
	return out
}

func optimizeClass(class hla.Class, byLocus map[hla.Locus][]candidate, cfg *Config) *ClassResult {
	cr := &ClassResult{Class: class, Max: cfg.MaxPerClass(class)}

	var active []hla.Locus
	for _, l := range class.Loci() {
		if len(byLocus[l]) == 0 {
			cr.Omitted = append(cr.Omitted, &InsufficientCandidatesError{Class: class, Locus: l})
			continue
		}
		active = append(active, l)
	}

	limits := locusLimits(active, cr.Max, cfg.Strategy())
	picks := make(map[hla.Locus][]pick, len(active))
	summaries := make(map[hla.Locus]*LocusSummary, len(active))
	for _, l := range active {
		picks[l] = greedyLocus(byLocus[l], limits[l], cfg)
		summaries[l] = &LocusSummary{
			Locus:      l,
			Candidates: len(byLocus[l]),
			Limit:      limits[l],
			Selected:   len(picks[l]),
		}
	}

	trimToCap(active, picks, summaries, cr.Max)

	uncovered := 1.0
	for _, l := range active {
		s := summaries[l]
		for _, p := range picks[l] {
			s.AlleleCoverage += p.aggregate
			s.PhenotypeCoverage += p.gain
			cr.Selected = append(cr.Selected, SelectedAllele{
				Locus:              l,
				Allele:             p.allele,
				Key:                p.key,
				AggregateFrequency: p.aggregate,
				PhenotypeFrequency: p.score,
				MarginalGain:       p.gain,
				ExternalName:       p.external,
			})
		}
		s.AlleleCoverage = clamp01(s.AlleleCoverage)
		s.PhenotypeCoverage = clamp01(s.PhenotypeCoverage)
		uncovered *= 1 - s.PhenotypeCoverage

		if achieved := s.metric(cfg.CoverageMetric()); achieved < cfg.MinCoverage() {
			cr.Shortfalls = append(cr.Shortfalls, &CoverageUnreachableError{
				Class:    class,
				Locus:    l,
				Metric:   cfg.CoverageMetric(),
				Achieved: achieved,
				Target:   cfg.MinCoverage(),
			})
		}
		cr.Loci = append(cr.Loci, *s)
	}
	if len(active) > 0 {
		cr.Coverage = clamp01(1 - uncovered)
	}
	return cr
}

func (s *LocusSummary) metric(m CoverageMetric) float64 {
	if m == MetricPhenotype {
		return s.PhenotypeCoverage
	}
	return s.AlleleCoverage
}

// locusLimits returns the maximum number of picks of each locus. The per-locus
// strategy splits classMax evenly with the remainder going to earlier loci; the
// joint strategy allows each locus the whole cap.
func locusLimits(loci []hla.Locus, classMax int, strategy Strategy) map[hla.Locus]int {
	limits := make(map[hla.Locus]int, len(loci))
	if len(loci) == 0 {
		return limits
	}
	for i, l := range loci {
		if strategy == StrategyPerLocus {
			limits[l] = classMax / len(loci)
			if i < classMax%len(loci) {
				limits[l]++
			}
		} else {
			limits[l] = classMax
		}
	}
	return limits
}

// greedyLocus repeatedly picks the candidate with the highest marginal gain
// score*(1-running) until limit picks are made, the coverage target is met,
// or candidates run out.
func greedyLocus(cands []candidate, limit int, cfg *Config) []pick {
	remaining := append([]candidate(nil), cands...)
	var (
		picks   []pick
		running float64
		allele  float64
	)
	for len(picks) < limit && len(remaining) > 0 {
		best := 0
		bestGain := remaining[0].score * (1 - running)
		for i := 1; i < len(remaining); i++ {
			gain := remaining[i].score * (1 - running)
			if better(remaining[i], gain, remaining[best], bestGain) {
				best, bestGain = i, gain
			}
		}

		c := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		picks = append(picks, pick{candidate: c, gain: bestGain})
		running = clamp01(running + bestGain)
		allele += c.aggregate

		reached := allele
		if cfg.CoverageMetric() == MetricPhenotype {
			reached = running
		}
		if reached >= cfg.MinCoverage() {
			break
		}
	}
	return picks
}

// better reports whether candidate a with gain ga ranks before b with gain gb:
// higher gain, then higher aggregate frequency, then smaller allele name.
func better(a candidate, ga float64, b candidate, gb float64) bool {
	if d := ga - gb; d > tieEpsilon || d < -tieEpsilon {
		return d > 0
	}
	if d := a.aggregate - b.aggregate; d > tieEpsilon || d < -tieEpsilon {
		return d > 0
	}
	return a.allele < b.allele
}

// trimToCap removes picks until the class holds at most classMax alleles. Only the
// last pick of a locus is ever removed, lowest marginal gain first, and a
// locus keeps its only pick unless every remaining locus is down to one.
func trimToCap(loci []hla.Locus, picks map[hla.Locus][]pick, summaries map[hla.Locus]*LocusSummary, classMax int) {
	total := 0
	for _, l := range loci {
		total += len(picks[l])
	}

	for total > classMax {
		victim := hla.Locus("")
		for _, keepOne := range []bool{true, false} {
			for _, l := range loci {
				n := len(picks[l])
				if n == 0 || (keepOne && n == 1) {
					continue
				}
				if victim == "" || worse(picks[l][n-1], lastPick(picks[victim])) {
					victim = l
				}
			}
			if victim != "" {
				break
			}
		}
		if victim == "" {
			return
		}
		picks[victim] = picks[victim][:len(picks[victim])-1]
		summaries[victim].Trimmed++
		summaries[victim].Selected--
		total--
	}
}

func lastPick(ps []pick) pick {
	return ps[len(ps)-1]
}

// worse reports whether a would be trimmed before b.
func worse(a, b pick) bool {
	return better(b.candidate, b.gain, a.candidate, a.gain)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
