// Package scanner implements the weighted scoring pipeline that triages raw
// candidate batches for a configured scanner definition.
package scanner

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// weightTolerance is the allowed deviation of the criterion weight sum from 1.0.
const weightTolerance = 1e-6

// InvalidScannerConfigError reports a scanner definition that cannot be
// scored: weights not summing to 1.0, or a weighted criterion without a
// scoring rule.
type InvalidScannerConfigError struct {
	Scanner    string
	Criterion  string
	Constraint string
}

// Error implements the error interface
func (e *InvalidScannerConfigError) Error() string {
	if e.Criterion != "" {
		return fmt.Sprintf("invalid scanner config %q, criterion %q: %s", e.Scanner, e.Criterion, e.Constraint)
	}
	return fmt.Sprintf("invalid scanner config %q: %s", e.Scanner, e.Constraint)
}

// RunSettings controls when a scanner runs and how many candidates it emits.
type RunSettings struct {
	ScheduleMinutes int `yaml:"schedule_minutes"`
	MaxCandidates   int `yaml:"max_candidates"`
}

// FilterSettings holds the liquidity and exclusion predicates applied before
// scoring.
type FilterSettings struct {
	MinPrice        float64  `yaml:"min_price"`
	MinValue        float64  `yaml:"min_value"`
	MinVolumeLots   float64  `yaml:"min_volume_lots"`
	ExcludedBoards  []string `yaml:"excluded_boards"`
	ExcludedSymbols []string `yaml:"excluded_symbols"`
}

// LadderStep maps a feature value range to a criterion score. Steps are
// evaluated highest threshold first; the first step whose Min the feature
// value reaches wins.
type LadderStep struct {
	Min   float64 `yaml:"min"`
	Score float64 `yaml:"score"`
}

// Rule is the deterministic scoring rule for one criterion: a threshold
// ladder over one input feature, producing a value in [0, 10].
type Rule struct {
	Feature string       `yaml:"feature"` // defaults to the criterion name
	Ladder  []LadderStep `yaml:"ladder"`
}

// Score maps a feature value onto the ladder.
func (r Rule) Score(value float64) float64 {
	for _, step := range r.Ladder {
		if value >= step.Min {
			return step.Score
		}
	}
	return 0
}

// Config is one scanner definition as loaded from YAML.
type Config struct {
	Name              string             `yaml:"name"`
	ScannerConfig     RunSettings        `yaml:"scanner_config"`
	Sources           []string           `yaml:"scanner"`
	QualityFilters    FilterSettings     `yaml:"quality_filters"`
	Scoring           map[string]float64 `yaml:"scoring"`
	Rules             map[string]Rule    `yaml:"rules"`
	AgentInstructions string             `yaml:"agent_instructions"`
}

// Validate checks that the config can score candidates: weights sum to
// 1.0 within tolerance, each weight lies in [0, 1], and every weighted
// criterion has a scoring rule with ladder scores in [0, 10].
// It also normalizes rule defaults (feature name, ladder ordering), so it
// must run before the config is used.
func (c *Config) Validate() error {
	if c.Name == "" {
		return &InvalidScannerConfigError{Scanner: c.Name, Constraint: "scanner name is required"}
	}
	if len(c.Scoring) == 0 {
		return &InvalidScannerConfigError{Scanner: c.Name, Constraint: "scoring section is empty"}
	}

	sum := 0.0
	for criterion, weight := range c.Scoring {
		if weight < 0 || weight > 1 {
			return &InvalidScannerConfigError{
				Scanner:    c.Name,
				Criterion:  criterion,
				Constraint: fmt.Sprintf("weight %.4f outside [0, 1]", weight),
			}
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return &InvalidScannerConfigError{
			Scanner:    c.Name,
			Constraint: fmt.Sprintf("criterion weights sum to %.6f, must sum to 1.0", sum),
		}
	}

	for criterion := range c.Scoring {
		rule, ok := c.Rules[criterion]
		if !ok {
			return &InvalidScannerConfigError{
				Scanner:    c.Name,
				Criterion:  criterion,
				Constraint: "no scoring rule defined",
			}
		}
		if len(rule.Ladder) == 0 {
			return &InvalidScannerConfigError{
				Scanner:    c.Name,
				Criterion:  criterion,
				Constraint: "scoring rule has an empty ladder",
			}
		}
		for _, step := range rule.Ladder {
			if step.Score < 0 || step.Score > 10 {
				return &InvalidScannerConfigError{
					Scanner:    c.Name,
					Criterion:  criterion,
					Constraint: fmt.Sprintf("ladder score %.2f outside [0, 10]", step.Score),
				}
			}
		}
		if rule.Feature == "" {
			rule.Feature = criterion
		}
		// Highest threshold first so Rule.Score picks the strongest match.
		sort.Slice(rule.Ladder, func(i, j int) bool {
			return rule.Ladder[i].Min > rule.Ladder[j].Min
		})
		c.Rules[criterion] = rule
	}
	return nil
}

// LoadConfig reads and validates one scanner definition from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scanner config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scanner config %s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDir loads every *.yaml / *.yml scanner definition in a directory,
// keyed by scanner name.
func LoadDir(dir string) (map[string]*Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scanner config dir %s: %w", dir, err)
	}

	configs := make(map[string]*Config)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		cfg, err := LoadConfig(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		configs[cfg.Name] = cfg
	}
	return configs, nil
}
