// Package hla provides HLA locus, class, and allele name handling.
package hla

import (
	"fmt"
	"strings"
)

// Locus is one of the classical HLA genes considered for panel selection.
type Locus string

// Supported loci.
const (
	LocusA    Locus = "A"
	LocusB    Locus = "B"
	LocusC    Locus = "C"
	LocusDRB1 Locus = "DRB1"
	LocusDQB1 Locus = "DQB1"
	LocusDPB1 Locus = "DPB1"
)

// Class is an HLA class (I or II).
type Class int

// HLA classes.
const (
	ClassI Class = iota + 1
	ClassII
)

// Classes lists both classes in output order.
var Classes = []Class{ClassI, ClassII}

var classLoci = map[Class][]Locus{
	ClassI:  {LocusA, LocusB, LocusC},
	ClassII: {LocusDRB1, LocusDQB1, LocusDPB1},
}

// locusOrder gives each locus its position within the canonical ordering.
var locusOrder = map[Locus]int{
	LocusA:    0,
	LocusB:    1,
	LocusC:    2,
	LocusDRB1: 3,
	LocusDQB1: 4,
	LocusDPB1: 5,
}

// ParseLocus parses a locus name such as "A" or "DRB1".
// Matching is case-insensitive and tolerates an "HLA-" prefix.
func ParseLocus(s string) (Locus, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "HLA-")
	l := Locus(name)
	if _, ok := locusOrder[l]; !ok {
		return "", fmt.Errorf("unknown HLA locus %q", s)
	}
	return l, nil
}

// Class returns the HLA class of the locus.
func (l Locus) Class() Class {
	switch l {
	case LocusA, LocusB, LocusC:
		return ClassI
	case LocusDRB1, LocusDQB1, LocusDPB1:
		return ClassII
	}
	return 0
}

// Valid reports whether l is one of the supported loci.
func (l Locus) Valid() bool {
	_, ok := locusOrder[l]
	return ok
}

// Less orders loci canonically: A, B, C, DRB1, DQB1, DPB1.
func (l Locus) Less(o Locus) bool {
	return locusOrder[l] < locusOrder[o]
}

// Loci returns the loci of the class in canonical order.
func (c Class) Loci() []Locus {
	return classLoci[c]
}

func (c Class) String() string {
	switch c {
	case ClassI:
		return "Class I"
	case ClassII:
		return "Class II"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Short returns a compact class label used in config keys and file names.
func (c Class) Short() string {
	switch c {
	case ClassI:
		return "classI"
	case ClassII:
		return "classII"
	}
	return ""
}
