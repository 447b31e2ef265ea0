package hla

import (
	"strings"

	"golang.org/x/text/cases"
)

// maxFields is the resolution alleles are compared at (two-field, e.g. 24:01).
const maxFields = 2

// Key is a normalized allele identifier: a locus plus up to two allele fields.
// Two names refer to the same allele when their keys are equal.
type Key struct {
	Locus  Locus
	Fields string // colon-joined fields, e.g. "24:01"
}

// knownLoci is ordered longest first so that prefix matching is unambiguous.
var knownLoci = []Locus{LocusDRB1, LocusDQB1, LocusDPB1, LocusA, LocusB, LocusC}

// Normalize reduces an allele name in any supported naming convention to a Key.
//
// Accepted forms include the AFND/IMGT style "HLA-A*24:01", the NetMHCpan style
// "HLA-A24:01", the NetMHCIIpan list style "DRB1*04:01" and its input style
// "DRB1_0401". Matching is case-insensitive. Fields beyond the second are dropped,
// so "A*02:01:01:02" and "A*02:01" share a key. A compact digit run is split into
// a two-digit first field and a second field of two digits, or three when the
// run has an odd length ("02101" is 02:101).
//
// ok is false when the name has no recognizable locus or no allele digits.
func Normalize(name string) (Key, bool) {
	// cases.Caser is stateful, so one is created per call.
	s := cases.Fold().String(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "hla-")
	s = strings.TrimPrefix(s, "hla")

	var locus Locus
	for _, l := range knownLoci {
		if strings.HasPrefix(s, strings.ToLower(string(l))) {
			locus = l
			break
		}
	}
	if locus == "" {
		return Key{}, false
	}
	rest := s[len(locus):]
	if rest != "" && strings.ContainsRune("*_-:", rune(rest[0])) {
		rest = rest[1:]
	}

	fields := splitFields(rest)
	if len(fields) == 0 || !isDigit(fields[0][0]) {
		return Key{}, false
	}
	if len(fields) > maxFields {
		fields = fields[:maxFields]
	}
	return Key{Locus: locus, Fields: strings.ToUpper(strings.Join(fields, ":"))}, true
}

func splitFields(rest string) []string {
	if rest == "" {
		return nil
	}
	if strings.Contains(rest, ":") {
		var fields []string
		for _, f := range strings.Split(rest, ":") {
			if f != "" {
				fields = append(fields, f)
			}
		}
		return fields
	}

	n := 0
	for n < len(rest) && isDigit(rest[n]) {
		n++
	}
	digits, suffix := rest[:n], rest[n:]
	if len(digits) <= 2 {
		return []string{rest}
	}
	second := 2
	if len(digits)%2 == 1 {
		second = 3
	}
	if 2+second > len(digits) {
		second = len(digits) - 2
	}
	fields := []string{digits[:2], digits[2 : 2+second]}
	if 2+second == len(digits) {
		fields[1] += suffix
	}
	return fields
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// String renders the key as "A*24:01".
func (k Key) String() string {
	return string(k.Locus) + "*" + k.Fields
}

// Canonical renders the key in frequency table form, e.g. "HLA-A*24:01".
func (k Key) Canonical() string {
	return "HLA-" + k.String()
}

// NetMHCpanName renders the key as NetMHCpan names it, e.g. "HLA-A24:01".
func (k Key) NetMHCpanName() string {
	return "HLA-" + string(k.Locus) + k.Fields
}

// NetMHCIIpanName renders the key as NetMHCIIpan's allele list names it, e.g. "DRB1*04:01".
func (k Key) NetMHCIIpanName() string {
	return k.String()
}

// NetMHCIIpanInput renders the key as NetMHCIIpan expects it on the command line, e.g. "DRB1_0401".
func (k Key) NetMHCIIpanInput() string {
	return string(k.Locus) + "_" + strings.ReplaceAll(k.Fields, ":", "")
}

// ToolName renders the key in the prediction tool convention of its class.
func (k Key) ToolName() string {
	if k.Locus.Class() == ClassII {
		return k.NetMHCIIpanName()
	}
	return k.NetMHCpanName()
}

// ToolInput renders the key the way the class's prediction tool accepts it as input.
func (k Key) ToolInput() string {
	if k.Locus.Class() == ClassII {
		return k.NetMHCIIpanInput()
	}
	return k.NetMHCpanName()
}
