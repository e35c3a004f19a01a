// Package inference guesses the prize region from unlocked clue text.
package inference

import (
	"slices"
	"strings"
	"unicode"

	"github.com/buzzhunt/buzzhunt-api/internal/pkg/metrics"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

const (
	nameWeight    = 10
	keywordWeight = 5

	highAbove    = 30
	mediumAbove  = 15
	minimumAbove = 10
)

// Result of one inference. Rule is set when a compound rule decided it.
type Result struct {
	Region     string     `json:"region"`
	Confidence Confidence `json:"confidence"`
	Score      int        `json:"score"`
	Rule       string     `json:"rule,omitempty"`
}

// Engine is safe for concurrent use; it holds no mutable state.
type Engine struct {
	gaz *Gazetteer
}

func NewEngine(g *Gazetteer) *Engine {
	if g == nil {
		g = DefaultGazetteer()
	}
	return &Engine{gaz: g}
}

// Infer is deterministic: the same texts always give the same Result.
func (e *Engine) Infer(texts []string) Result {
	res := e.infer(words(strings.Join(texts, " ")))
	metrics.InferencesTotal.WithLabelValues(string(res.Confidence)).Inc()
	return res
}

func (e *Engine) infer(text []string) Result {
	for _, rule := range e.gaz.Rules {
		if matchesAll(text, rule.AllOf) {
			return Result{
				Region:     rule.Region,
				Confidence: rule.Confidence,
				Score:      e.scoreOf(text, rule.Region),
				Rule:       rule.Name,
			}
		}
	}

	best, bestScore := "", 0
	for _, r := range e.gaz.Regions {
		// strictly greater keeps the earlier region on ties
		if s := score(text, r); s > bestScore {
			best, bestScore = r.Name, s
		}
	}

	if bestScore <= minimumAbove {
		return Result{Region: e.gaz.DefaultRegion, Confidence: ConfidenceLow, Score: bestScore}
	}
	return Result{Region: best, Confidence: tier(bestScore), Score: bestScore}
}

func (e *Engine) scoreOf(text []string, region string) int {
	for _, r := range e.gaz.Regions {
		if r.Name == region {
			return score(text, r)
		}
	}
	return 0
}

func score(text []string, r Region) int {
	s := nameWeight * count(text, r.Name)
	for _, a := range r.Aliases {
		s += nameWeight * count(text, a)
	}
	for _, k := range r.Keywords {
		s += keywordWeight * count(text, k)
	}
	return s
}

func matchesAll(text []string, groups [][]string) bool {
	for _, group := range groups {
		found := false
		for _, term := range group {
			if count(text, term) > 0 {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// words lower-cases s and splits it on anything that is not a letter or digit.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// count reports how often term appears in text as a run of whole words.
func count(text []string, term string) int {
	t := words(term)
	if len(t) == 0 {
		return 0
	}
	n := 0
	for i := 0; i+len(t) <= len(text); i++ {
		if slices.Equal(text[i:i+len(t)], t) {
			n++
		}
	}
	return n
}

func tier(score int) Confidence {
	switch {
	case score > highAbove:
		return ConfidenceHigh
	case score > mediumAbove:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
