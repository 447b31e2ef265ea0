package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/hlapanel/internal/selection"
)

type fixture struct {
	dir         string
	freqTable   string
	netmhcpan   string
	netmhciipan string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	f := fixture{
		dir:         dir,
		freqTable:   filepath.Join(dir, "hla_freq.tsv"),
		netmhcpan:   filepath.Join(dir, "MHC_allele_names.txt"),
		netmhciipan: filepath.Join(dir, "alleles_name.txt"),
	}
	write := func(path, content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write(f.freqTable, "locus\tallele\tfrequency\tpopulation\n"+
		"A\tHLA-A*01:01\t0.5\tP\n"+
		"A\tHLA-A*02:01\t0.3\tP\n"+
		"A\tHLA-A*24:02\t0.4\tQ\n"+
		"DRB1\tHLA-DRB1*15:01\t0.6\tP\n"+
		"DRB1\tHLA-DRB1*04:01\t0.3\tP\n")
	write(f.netmhcpan, "HLA-A01:01\nHLA-A02:01\nHLA-A24:02\n")
	write(f.netmhciipan, "DR DP DQ\nDRB1*15:01\nDRB1*04:01\n")
	return f
}

func (f fixture) selectArgs(extra ...string) []string {
	args := []string{"select",
		"--freq-table", f.freqTable,
		"--netmhcpan-alleles", f.netmhcpan,
		"--netmhciipan-alleles", f.netmhciipan,
		"--out-dir", filepath.Join(f.dir, "out"),
	}
	return append(args, extra...)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSelect(t *testing.T) {
	f := newFixture(t)

	code, stdout, stderr := runCLI(t, f.selectArgs("--population", "P")...)
	require.Equal(t, ExitSuccess, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "class\tlocus\tallele\tfrequency\texternal_name\tphenotype_frequency\tmarginal_gain", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "classI\tA\tHLA-A*01:01\t0.500000\tHLA-A01:01\t"), lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "classII\tDRB1\tHLA-DRB1*15:01\t0.600000\tDRB1*15:01\t"), lines[3])

	out := filepath.Join(f.dir, "out")
	assert.Equal(t, "HLA-A01:01,HLA-A02:01", readFile(t, filepath.Join(out, "selected_classI_alleles.txt")))
	assert.Equal(t, "DRB1_1501,DRB1_0401", readFile(t, filepath.Join(out, "selected_classII_alleles.txt")))

	assert.Contains(t, stderr, "Class I: 2/20 alleles selected")
	assert.Contains(t, stderr, "locus omitted")
}

func TestSelectOutputFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "panel.tsv")

	code, stdout, _ := runCLI(t, f.selectArgs("--population", "P", "-o", path, "--no-summary")...)
	require.Equal(t, ExitSuccess, code)
	assert.Empty(t, stdout)
	assert.Contains(t, readFile(t, path), "HLA-DRB1*04:01")
}

func TestSelectAllPopulationsByDefault(t *testing.T) {
	f := newFixture(t)

	code, stdout, stderr := runCLI(t, f.selectArgs()...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "HLA-A*24:02")
}

func TestSelectEnvOverridesDefault(t *testing.T) {
	f := newFixture(t)
	t.Setenv("HLAPANEL_SELECTION_MAX_CLASS_I", "1")

	code, _, stderr := runCLI(t, f.selectArgs("--population", "P")...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "HLA-A01:01", readFile(t, filepath.Join(f.dir, "out", "selected_classI_alleles.txt")))
}

func TestSelectWithStore(t *testing.T) {
	f := newFixture(t)
	db := filepath.Join(f.dir, "freq.duckdb")

	code, _, stderr := runCLI(t, "import", "--db", db, f.freqTable)
	require.Equal(t, ExitSuccess, code, stderr)

	args := []string{"select", "--db", db,
		"--netmhcpan-alleles", f.netmhcpan,
		"--netmhciipan-alleles", f.netmhciipan,
		"--out-dir", filepath.Join(f.dir, "out"),
		"--population", "P",
	}
	code, stdout, stderr := runCLI(t, args...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "HLA-A*01:01")
	assert.NotContains(t, stdout, "HLA-A*24:02")
}

func TestPopulations(t *testing.T) {
	f := newFixture(t)

	code, stdout, stderr := runCLI(t, "populations", f.freqTable)
	require.Equal(t, ExitSuccess, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"POPULATION", "ROWS"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"P", "4"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"Q", "1"}, strings.Fields(lines[2]))
}

func TestConvert(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(f.dir, "afnd.tsv")
	require.NoError(t, os.WriteFile(src, []byte("group\tgene\tallele\talleles_over_2n\tpopulation\n"+
		"hla\tA\tA*01:01\t0.5\tP\n"+
		"kir\tA\tA*01:01\t0.5\tP\n"), 0644))
	dst := filepath.Join(f.dir, "converted.tsv")

	code, _, stderr := runCLI(t, "convert", "-o", dst, src)
	require.Equal(t, ExitSuccess, code, stderr)

	lines := strings.Split(strings.TrimSpace(readFile(t, dst)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "HLA-A*01:01")
}

func TestConfigSetGet(t *testing.T) {
	f := newFixture(t)
	cfg := filepath.Join(f.dir, "hlapanel.yaml")

	code, stdout, stderr := runCLI(t, "config", "set", "selection.max_class_i", "1", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Set selection.max_class_i = 1")

	code, stdout, _ = runCLI(t, "config", "get", "selection.max_class_i", "--config", cfg)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "1\n", stdout)

	code, _, _ = runCLI(t, f.selectArgs("--population", "P", "--config", cfg)...)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "HLA-A01:01", readFile(t, filepath.Join(f.dir, "out", "selected_classI_alleles.txt")))

	// flags win over the config file
	code, _, _ = runCLI(t, f.selectArgs("--population", "P", "--config", cfg, "--max-class-i", "5")...)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "HLA-A01:01,HLA-A02:01", readFile(t, filepath.Join(f.dir, "out", "selected_classI_alleles.txt")))

	code, _, stderr = runCLI(t, "config", "get", "data.db", "--config", cfg)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `key "data.db" is not set`)
}

func TestConfigSetWeights(t *testing.T) {
	f := newFixture(t)
	cfg := filepath.Join(f.dir, "hlapanel.yaml")

	code, _, stderr := runCLI(t, "config", "set", "selection.population_weights", "P=2, Q=1", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)

	code, _, stderr = runCLI(t, f.selectArgs("--config", cfg)...)
	require.Equal(t, ExitSuccess, code, stderr)

	code, _, _ = runCLI(t, "config", "set", "selection.population_weights", "P", "--config", cfg)
	assert.Equal(t, ExitUsage, code)
}

func TestExitCodes(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing whitelists", []string{"select", "--freq-table", f.freqTable}, ExitUsage},
		{"missing table", []string{"select", "--netmhcpan-alleles", f.netmhcpan, "--netmhciipan-alleles", f.netmhciipan}, ExitUsage},
		{"unknown flag", []string{"select", "--bogus"}, ExitUsage},
		{"extra argument", []string{"convert", "-o", "x.tsv", "a", "b"}, ExitUsage},
		{"unknown population", f.selectArgs("--population", "Nowhere"), ExitUsage},
		{"invalid coverage", f.selectArgs("--coverage", "1.5"), ExitUsage},
		{"invalid strategy", f.selectArgs("--strategy", "random"), ExitUsage},
		{"bad weight", f.selectArgs("--weight", "P"), ExitUsage},
		{"bad log level", append(f.selectArgs(), "--config", writeConfig(t, f.dir, "log:\n  level: loud\n")), ExitUsage},
		{"unreadable table", f.selectArgs("--freq-table", filepath.Join(f.dir, "missing.tsv")), ExitError},
		{"import without db", []string{"import", f.freqTable}, ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, tt.want, code, stderr)
			assert.Contains(t, stderr, "Error: ")
		})
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "dev (none) built unknown")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitError, exitCode(errors.New("boom")))
	assert.Equal(t, ExitUsage, exitCode(usagef("bad flag")))
	assert.Equal(t, ExitUsage, exitCode(&selection.ConfigError{Param: "max_class_i", Message: "must be greater than 0"}))
}

func TestParseWeights(t *testing.T) {
	got, err := parseWeights([]string{"European=2", "A=B=0.5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"European": 2, "A=B": 0.5}, got)

	got, err = parseWeights(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"European", "=1", "European=x"} {
		_, err := parseWeights([]string{bad})
		var ue *usageError
		assert.ErrorAs(t, err, &ue, bad)
	}
}
