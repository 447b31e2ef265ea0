package selection

import (
	"fmt"
	"strings"

	"github.com/inodb/hlapanel/internal/freq"
	"github.com/inodb/hlapanel/internal/hla"
	"github.com/inodb/hlapanel/internal/whitelist"
)

// FilterPopulations returns the records whose population exactly matches one of
// the target populations. Matching is case-sensitive and whitespace-preserving.
// A target population with no records is a *ConfigError naming it.
func FilterPopulations(records []freq.Record, cfg *Config) ([]freq.Record, error) {
	targets := make(map[string]int, len(cfg.populations))
	for _, p := range cfg.populations {
		targets[p] = 0
	}

	var out []freq.Record
	for _, r := range records {
		if _, ok := targets[r.Population]; ok {
			targets[r.Population]++
			out = append(out, r)
		}
	}

	var missing []string
	for _, p := range cfg.populations {
		if targets[p] == 0 {
			missing = append(missing, fmt.Sprintf("%q", p))
		}
	}
	if len(missing) > 0 {
		noun := "population"
		if len(missing) > 1 {
			noun = "populations"
		}
		return nil, &ConfigError{
			Param:   "target_populations",
			Message: fmt.Sprintf("%s %s not found in frequency table", noun, strings.Join(missing, ", ")),
		}
	}
	if len(out) == 0 {
		return nil, &ConfigError{
			Param:   "target_populations",
			Message: "no frequency records match the target populations",
		}
	}
	return out, nil
}

// FilterWhitelist returns the records whose allele normalizes to an entry of
// its class's whitelist, with ExternalName set to the whitelisted tool name.
// An empty whitelist for either class is a *ConfigError.
func FilterWhitelist(records []freq.Record, lists whitelist.Set) ([]freq.Record, error) {
	for _, class := range hla.Classes {
		if lists[class].Len() == 0 {
			return nil, &ConfigError{
				Param:   "whitelist." + class.Short(),
				Message: fmt.Sprintf("%s allele whitelist is empty", class),
			}
		}
	}

	var out []freq.Record
	for _, r := range records {
		k, ok := hla.Normalize(r.Allele)
		if !ok || k.Locus != r.Locus {
			continue
		}
		name, ok := lists[r.Locus.Class()].Lookup(k)
		if !ok {
			continue
		}
		r.ExternalName = name
		out = append(out, r)
	}
	return out, nil
}
