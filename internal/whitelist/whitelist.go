// Package whitelist provides the allele lists accepted by the NetMHCpan (Class I)
// and NetMHCIIpan (Class II) prediction tools.
package whitelist

import (
	"sort"

	"github.com/inodb/hlapanel/internal/hla"
)

// List is the set of alleles a prediction tool accepts for one HLA class,
// indexed by normalized allele key.
type List struct {
	class hla.Class
	names map[hla.Key]string
}

// New builds a list for class from tool allele names. Names that do not
// normalize, or that belong to the other class, are ignored. When several
// names share a key the lexicographically smallest one is kept.
func New(class hla.Class, names []string) *List {
	l := &List{class: class, names: make(map[hla.Key]string)}
	for _, name := range names {
		l.Add(name)
	}
	return l
}

// Add inserts a tool allele name and reports whether it was accepted.
func (l *List) Add(name string) bool {
	k, ok := hla.Normalize(name)
	if !ok || k.Locus.Class() != l.class {
		return false
	}
	if prev, exists := l.names[k]; !exists || name < prev {
		l.names[k] = name
	}
	return true
}

// Class returns the HLA class the list covers.
func (l *List) Class() hla.Class {
	return l.class
}

// Len returns the number of distinct alleles in the list.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}

// Lookup returns the tool name registered for key.
func (l *List) Lookup(k hla.Key) (string, bool) {
	if l == nil {
		return "", false
	}
	name, ok := l.names[k]
	return name, ok
}

// Contains reports whether the allele name normalizes to a listed allele.
func (l *List) Contains(allele string) bool {
	k, ok := hla.Normalize(allele)
	if !ok {
		return false
	}
	_, found := l.Lookup(k)
	return found
}

// Names returns the tool names in sorted order.
func (l *List) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.names))
	for _, n := range l.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Set holds one list per HLA class.
type Set map[hla.Class]*List
