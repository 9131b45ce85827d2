package scanner

import (
	"fmt"
	"strings"
)

// CandidateFilter is an interface for individual pre-scoring filter logic.
type CandidateFilter interface {
	Name() string
	Evaluate(c *RawCandidate) (shouldPass bool, detail string)
}

// buildFilters assembles the filter pipeline for a scanner config, in order:
// exclusion predicates first (cheapest), then liquidity, then feature
// completeness.
func buildFilters(cfg *Config) []CandidateFilter {
	return []CandidateFilter{
		&ExclusionFilter{boards: cfg.QualityFilters.ExcludedBoards, symbols: cfg.QualityFilters.ExcludedSymbols},
		&LiquidityFilter{settings: cfg.QualityFilters},
		&FeatureCompletenessFilter{cfg: cfg},
	}
}

// ============================================================================
// INDIVIDUAL FILTERS
// ============================================================================

// ExclusionFilter drops candidates on excluded boards or symbol lists.
type ExclusionFilter struct {
	boards  []string
	symbols []string
}

func (f *ExclusionFilter) Name() string { return "Exclusion" }

func (f *ExclusionFilter) Evaluate(c *RawCandidate) (bool, string) {
	for _, board := range f.boards {
		if strings.EqualFold(board, c.MarketBoard) {
			return false, fmt.Sprintf("board %s is excluded", c.MarketBoard)
		}
	}
	for _, symbol := range f.symbols {
		if strings.EqualFold(symbol, c.Ticker) {
			return false, "symbol is excluded"
		}
	}
	return true, ""
}

// LiquidityFilter drops candidates below the configured price, traded value,
// or volume floors.
type LiquidityFilter struct {
	settings FilterSettings
}

func (f *LiquidityFilter) Name() string { return "Liquidity" }

func (f *LiquidityFilter) Evaluate(c *RawCandidate) (bool, string) {
	if f.settings.MinPrice > 0 && c.Price < f.settings.MinPrice {
		return false, fmt.Sprintf("price %.2f below minimum %.2f", c.Price, f.settings.MinPrice)
	}
	if f.settings.MinValue > 0 && c.Value < f.settings.MinValue {
		return false, fmt.Sprintf("traded value %.0f below minimum %.0f", c.Value, f.settings.MinValue)
	}
	if f.settings.MinVolumeLots > 0 && c.VolumeLots < f.settings.MinVolumeLots {
		return false, fmt.Sprintf("volume %.0f lots below minimum %.0f", c.VolumeLots, f.settings.MinVolumeLots)
	}
	return true, ""
}

// FeatureCompletenessFilter drops candidates missing a feature required by
// any weighted criterion, so scoring never operates on absent data.
type FeatureCompletenessFilter struct {
	cfg *Config
}

func (f *FeatureCompletenessFilter) Name() string { return "Feature Completeness" }

func (f *FeatureCompletenessFilter) Evaluate(c *RawCandidate) (bool, string) {
	for criterion := range f.cfg.Scoring {
		feature := f.cfg.Rules[criterion].Feature
		if _, ok := c.Feature(feature); !ok {
			return false, fmt.Sprintf("missing feature %q for criterion %q", feature, criterion)
		}
	}
	return true, ""
}
