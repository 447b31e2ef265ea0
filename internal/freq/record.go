// Package freq provides HLA allele frequency records and frequency table I/O.
package freq

import "github.com/inodb/hlapanel/internal/hla"

// DefaultPopulation is assigned to rows of tables that have no population column.
const DefaultPopulation = "all"

// Record is one row of an allele frequency table: the frequency of an allele
// at a locus within one population.
type Record struct {
	Population string
	Locus      hla.Locus
	Allele     string  // canonical form, e.g. "HLA-A*24:01"
	Frequency  float64 // allele frequency in [0,1]

	// ExternalName is the prediction tool's name for the allele. It is set
	// once the record has been matched against a whitelist.
	ExternalName string
}

// Populations returns the distinct populations of the records in first-seen order.
func Populations(records []Record) []string {
	seen := make(map[string]bool)
	var pops []string
	for _, r := range records {
		if !seen[r.Population] {
			seen[r.Population] = true
			pops = append(pops, r.Population)
		}
	}
	return pops
}
