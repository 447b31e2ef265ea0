package output

import (
	"fmt"
	"io"

	"github.com/inodb/hlapanel/internal/selection"
)

// WriteSummary writes a human-readable report of a selection: per class the
// panel size, estimated coverage, per-locus coverage, omitted loci and shortfalls.
func WriteSummary(w io.Writer, res *selection.Result) error {
	for _, cr := range res.Classes {
		if _, err := fmt.Fprintf(w, "%s: %d/%d alleles selected, estimated population coverage %.4f\n",
			cr.Class, len(cr.Selected), cr.Max, cr.Coverage); err != nil {
			return err
		}
		for _, s := range cr.Loci {
			line := fmt.Sprintf("  HLA-%-4s  %d selected of %d candidates (limit %d", s.Locus, s.Selected, s.Candidates, s.Limit)
			if s.Trimmed > 0 {
				line += fmt.Sprintf(", %d trimmed", s.Trimmed)
			}
			line += fmt.Sprintf(")  allele coverage %.4f  phenotype coverage %.4f\n", s.AlleleCoverage, s.PhenotypeCoverage)
			if _, err := io.WriteString(w, line); err != nil {
				return err
			}
		}
		for _, o := range cr.Omitted {
			if _, err := fmt.Fprintf(w, "  omitted: %v\n", o); err != nil {
				return err
			}
		}
		for _, sf := range cr.Shortfalls {
			if _, err := fmt.Fprintf(w, "  shortfall: %v\n", sf); err != nil {
				return err
			}
		}
	}
	return nil
}
