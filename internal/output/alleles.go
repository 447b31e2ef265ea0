package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/hlapanel/internal/hla"
)

// AlleleListFileName returns the prediction-tool input file name for class.
func AlleleListFileName(class hla.Class) string {
	return fmt.Sprintf("selected_%s_alleles.txt", class.Short())
}

// AlleleList returns the table's alleles as the class's prediction tool takes
// them on input: NetMHCpan names for Class I (HLA-A02:01), NetMHCIIpan input
// names for Class II (DRB1_0401).
func AlleleList(t Table) []string {
	names := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		k, ok := hla.Normalize(r.Allele)
		if !ok {
			k, ok = hla.Normalize(r.ExternalName)
		}
		if !ok {
			continue
		}
		names = append(names, k.ToolInput())
	}
	return names
}

// WriteAlleleList writes the table's tool input names comma-separated with no
// spaces and no trailing newline.
func WriteAlleleList(w io.Writer, t Table) error {
	_, err := io.WriteString(w, strings.Join(AlleleList(t), ","))
	return err
}

// WriteAlleleListFiles writes one allele list file per class into dir and
// returns the paths written.
func WriteAlleleListFiles(dir string, ts Tables) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var paths []string
	for _, class := range hla.Classes {
		path := filepath.Join(dir, AlleleListFileName(class))
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create allele list: %w", err)
		}
		if err := WriteAlleleList(f, ts.Table(class)); err != nil {
			f.Close()
			return nil, fmt.Errorf("write allele list: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("close allele list: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
