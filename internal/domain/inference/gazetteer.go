package inference

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed gazetteer.toml
var defaultGazetteer []byte

// Region is one scorable place.
type Region struct {
	Name     string   `toml:"name"`
	Aliases  []string `toml:"aliases"`
	Keywords []string `toml:"keywords"`
}

// Rule fires when every group in AllOf has at least one term present.
type Rule struct {
	Name       string     `toml:"name"`
	Region     string     `toml:"region"`
	Confidence Confidence `toml:"confidence"`
	AllOf      [][]string `toml:"all_of"`
}

// Gazetteer holds the regions and the compound rules evaluated before them.
type Gazetteer struct {
	DefaultRegion string   `toml:"default_region"`
	Rules         []Rule   `toml:"rules"`
	Regions       []Region `toml:"regions"`
}

// LoadGazetteer reads a TOML gazetteer from path, or the built-in one when
// path is empty.
func LoadGazetteer(path string) (*Gazetteer, error) {
	if path == "" {
		return ParseGazetteer(defaultGazetteer)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gazetteer: %w", err)
	}
	return ParseGazetteer(data)
}

// DefaultGazetteer returns the built-in gazetteer.
func DefaultGazetteer() *Gazetteer {
	g, err := ParseGazetteer(defaultGazetteer)
	if err != nil {
		panic(fmt.Sprintf("embedded gazetteer: %v", err))
	}
	return g
}

// ParseGazetteer decodes and normalizes a gazetteer. All terms are lower-cased.
func ParseGazetteer(data []byte) (*Gazetteer, error) {
	var g Gazetteer
	if _, err := toml.Decode(string(data), &g); err != nil {
		return nil, fmt.Errorf("decode gazetteer: %w", err)
	}
	if err := g.normalize(); err != nil {
		return nil, err
	}
	return &g, nil
}

func (g *Gazetteer) normalize() error {
	if g.DefaultRegion == "" {
		g.DefaultRegion = "Italy"
	}
	if len(g.Regions) == 0 {
		return fmt.Errorf("gazetteer has no regions")
	}

	names := make(map[string]bool, len(g.Regions)+1)
	names[g.DefaultRegion] = true
	for i := range g.Regions {
		r := &g.Regions[i]
		if r.Name == "" {
			return fmt.Errorf("region %d has no name", i)
		}
		if names[r.Name] && r.Name != g.DefaultRegion {
			return fmt.Errorf("duplicate region %q", r.Name)
		}
		names[r.Name] = true
		r.Aliases = lowerAll(r.Aliases)
		r.Keywords = lowerAll(r.Keywords)
	}

	for i := range g.Rules {
		rule := &g.Rules[i]
		if !names[rule.Region] {
			return fmt.Errorf("rule %q names unknown region %q", rule.Name, rule.Region)
		}
		switch rule.Confidence {
		case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		default:
			return fmt.Errorf("rule %q has invalid confidence %q", rule.Name, rule.Confidence)
		}
		if len(rule.AllOf) == 0 {
			return fmt.Errorf("rule %q has no terms", rule.Name)
		}
		for j := range rule.AllOf {
			rule.AllOf[j] = lowerAll(rule.AllOf[j])
		}
	}
	return nil
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
