package inference

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInfer(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name  string
		texts []string
		want  Result
	}{
		{
			name:  "sicilian pastry rule",
			texts: []string{"Think of cannoli", "filled with sweet RICOTTA"},
			want:  Result{Region: "Sicily", Confidence: ConfidenceHigh, Score: 10, Rule: "sicilian-pastry"},
		},
		{
			name:  "border rule",
			texts: []string{"Vicino al confine", "la città inizia con C"},
			want:  Result{Region: "Lombardy", Confidence: ConfidenceHigh, Score: 0, Rule: "border-c"},
		},
		{
			name:  "border rule english",
			texts: []string{"near the border, the town starts with C"},
			want:  Result{Region: "Lombardy", Confidence: ConfidenceHigh, Score: 0, Rule: "border-c"},
		},
		{
			name:  "medium score",
			texts: []string{"A Roma, tra il Colosseo e il Vaticano"},
			want:  Result{Region: "Lazio", Confidence: ConfidenceMedium, Score: 20},
		},
		{
			name:  "high score",
			texts: []string{"Napoli", "napoli sotto il vesuvio", "pizza e pompei"},
			want:  Result{Region: "Campania", Confidence: ConfidenceHigh, Score: 35},
		},
		{
			name:  "score of fifteen is low",
			texts: []string{"Firenze e il chianti"},
			want:  Result{Region: "Tuscany", Confidence: ConfidenceLow, Score: 15},
		},
		{
			name:  "score of ten falls back",
			texts: []string{"torino"},
			want:  Result{Region: "Italy", Confidence: ConfidenceLow, Score: 10},
		},
		{
			name:  "no match",
			texts: []string{"nessun indizio utile"},
			want:  Result{Region: "Italy", Confidence: ConfidenceLow, Score: 0},
		},
		{
			name:  "no texts",
			texts: nil,
			want:  Result{Region: "Italy", Confidence: ConfidenceLow, Score: 0},
		},
		{
			name:  "words inside other words do not count",
			texts: []string{"un aroma di caffè", "chrome finish", "comodo"},
			want:  Result{Region: "Italy", Confidence: ConfidenceLow, Score: 0},
		},
		{
			name:  "punctuation separates words",
			texts: []string{"Roma, Rome! (colosseo)"},
			want:  Result{Region: "Lazio", Confidence: ConfidenceMedium, Score: 25},
		},
		{
			name:  "multi-word keyword",
			texts: []string{"Siena", "la torre pendente"},
			want:  Result{Region: "Tuscany", Confidence: ConfidenceLow, Score: 15},
		},
		{
			name:  "border rule needs the whole phrase",
			texts: []string{"vicino al confine", "inizia con calma"},
			want:  Result{Region: "Italy", Confidence: ConfidenceLow, Score: 0},
		},
		{
			name:  "tie goes to earlier region",
			texts: []string{"milano bergamo", "roma rome"},
			want:  Result{Region: "Lombardy", Confidence: ConfidenceMedium, Score: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.Infer(tt.texts); got != tt.want {
				t.Errorf("Infer(%q) = %+v, want %+v", tt.texts, got, tt.want)
			}
		})
	}
}

func TestInferDeterministic(t *testing.T) {
	engine := NewEngine(nil)
	texts := []string{"laguna", "venezia", "prosecco", "gondola", "verona"}
	first := engine.Infer(texts)
	for i := 0; i < 50; i++ {
		if got := engine.Infer(texts); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
	if first.Region != "Veneto" || first.Confidence != ConfidenceHigh {
		t.Fatalf("unexpected result %+v", first)
	}
}

func TestLoadGazetteerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaz.toml")
	data := []byte(`
default_region = "Nowhere"

[[regions]]
name = "Alpha"
aliases = ["ALF"]
keywords = ["one"]
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	g, err := LoadGazetteer(path)
	if err != nil {
		t.Fatal(err)
	}
	if g.Regions[0].Aliases[0] != "alf" {
		t.Fatalf("aliases not normalized: %v", g.Regions[0].Aliases)
	}

	engine := NewEngine(g)
	if got := engine.Infer([]string{"alpha alf one"}); got.Region != "Alpha" || got.Score != 25 {
		t.Fatalf("unexpected %+v", got)
	}
	if got := engine.Infer([]string{"nothing"}); got.Region != "Nowhere" {
		t.Fatalf("expected configured default, got %+v", got)
	}
}

func TestLoadGazetteerEmbedded(t *testing.T) {
	g, err := LoadGazetteer("")
	if err != nil {
		t.Fatal(err)
	}
	if g.DefaultRegion != "Italy" || len(g.Rules) != 2 {
		t.Fatalf("unexpected embedded gazetteer %+v", g)
	}
}

func TestParseGazetteerRejects(t *testing.T) {
	tests := map[string]string{
		"bad toml":     `regions = [`,
		"no regions":   `default_region = "Italy"`,
		"unnamed":      "[[regions]]\naliases = [\"x\"]",
		"duplicate":    "[[regions]]\nname = \"A\"\n[[regions]]\nname = \"A\"",
		"unknown rule": "[[regions]]\nname = \"A\"\n[[rules]]\nname = \"r\"\nregion = \"B\"\nconfidence = \"high\"\nall_of = [[\"x\"]]",
		"bad tier":     "[[regions]]\nname = \"A\"\n[[rules]]\nname = \"r\"\nregion = \"A\"\nconfidence = \"sure\"\nall_of = [[\"x\"]]",
		"empty rule":   "[[regions]]\nname = \"A\"\n[[rules]]\nname = \"r\"\nregion = \"A\"\nconfidence = \"low\"",
	}
	for name, data := range tests {
		if _, err := ParseGazetteer([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadGazetteerMissingFile(t *testing.T) {
	if _, err := LoadGazetteer(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error")
	}
}
