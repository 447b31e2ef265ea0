package whitelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/hlapanel/internal/hla"
)

// LoadNetMHCpan loads a NetMHCpan allele file (MHC_allele_names.txt).
func LoadNetMHCpan(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open NetMHCpan allele list: %w", err)
	}
	defer f.Close()

	return ParseNetMHCpan(f)
}

// ParseNetMHCpan reads one allele per line and keeps the human classical
// Class I alleles (lines starting with HLA-A, HLA-B or HLA-C).
func ParseNetMHCpan(r io.Reader) (*List, error) {
	l := New(hla.ClassI, nil)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if strings.HasPrefix(name, "HLA-A") || strings.HasPrefix(name, "HLA-B") || strings.HasPrefix(name, "HLA-C") {
			l.Add(name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading NetMHCpan allele list: %w", err)
	}
	return l, nil
}

// LoadNetMHCIIpan loads a NetMHCIIpan allele file (alleles_name.txt).
func LoadNetMHCIIpan(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open NetMHCIIpan allele list: %w", err)
	}
	defer f.Close()

	return ParseNetMHCIIpan(f)
}

// ParseNetMHCIIpan reads the tabular NetMHCIIpan allele file, which lists DR,
// DQ and DP alleles in columns. Blank lines, comments and the "DR ..." column
// header are skipped. Tokens naming a DRB1, DQB1 or DPB1 allele on their own
// (DRB1*04:01 or DRB1_0401) are kept; alpha/beta pair names are not.
func ParseNetMHCIIpan(r io.Reader) (*List, error) {
	l := New(hla.ClassII, nil)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "DR ") {
			continue
		}
		for _, tok := range strings.Fields(line) {
			if isClassIIToken(tok) {
				l.Add(tok)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading NetMHCIIpan allele list: %w", err)
	}
	return l, nil
}

func isClassIIToken(tok string) bool {
	for _, locus := range hla.ClassII.Loci() {
		p := string(locus)
		if strings.HasPrefix(tok, p+"*") || strings.HasPrefix(tok, p+"_") {
			return true
		}
	}
	return false
}
