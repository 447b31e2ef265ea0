// Package output provides allele panel output formatters.
package output

import (
	"sort"

	"github.com/inodb/hlapanel/internal/hla"
	"github.com/inodb/hlapanel/internal/selection"
)

// Row is one line of a panel table.
type Row struct {
	Locus              hla.Locus
	Allele             string
	Frequency          float64 // aggregate allele frequency
	ExternalName       string
	PhenotypeFrequency float64
	MarginalGain       float64
}

// Table is the ordered panel of one class.
type Table struct {
	Class hla.Class
	Rows  []Row
}

// Tables holds the Class I and Class II panels.
type Tables struct {
	ClassI  Table
	ClassII Table
}

// Emit converts a selection result into ordered tables. Rows are sorted by
// descending frequency, then locus in canonical order, then allele name.
// The result is not modified.
func Emit(res *selection.Result) Tables {
	return Tables{
		ClassI:  emitClass(res, hla.ClassI),
		ClassII: emitClass(res, hla.ClassII),
	}
}

func emitClass(res *selection.Result, class hla.Class) Table {
	t := Table{Class: class}
	cr := res.Class(class)
	if cr == nil {
		return t
	}

	t.Rows = make([]Row, 0, len(cr.Selected))
	for _, s := range cr.Selected {
		t.Rows = append(t.Rows, Row{
			Locus:              s.Locus,
			Allele:             s.Allele,
			Frequency:          s.AggregateFrequency,
			ExternalName:       s.ExternalName,
			PhenotypeFrequency: s.PhenotypeFrequency,
			MarginalGain:       s.MarginalGain,
		})
	}

	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := t.Rows[i], t.Rows[j]
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		if a.Locus != b.Locus {
			return a.Locus.Less(b.Locus)
		}
		return a.Allele < b.Allele
	})
	return t
}

// Table returns the table for class.
func (ts Tables) Table(class hla.Class) Table {
	if class == hla.ClassII {
		return ts.ClassII
	}
	return ts.ClassI
}
