package scanner

import (
	"log"
	"math"
	"sort"
)

// Evaluator applies one scanner's filters and weighted scoring to candidate
// batches. It is stateless across batches and safe for concurrent use once
// constructed.
type Evaluator struct {
	cfg     *Config
	filters []CandidateFilter
}

// NewEvaluator validates the scanner config and builds its filter pipeline.
// Fails with InvalidScannerConfigError before any scoring runs.
func NewEvaluator(cfg *Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{
		cfg:     cfg,
		filters: buildFilters(cfg),
	}, nil
}

// Config returns the scanner definition this evaluator runs.
func (e *Evaluator) Config() *Config {
	return e.cfg
}

// Evaluate runs a batch through the filter pipeline and scores the survivors.
// Candidates are returned ordered by score descending, ties broken by ticker
// lexical order.
func (e *Evaluator) Evaluate(batch []RawCandidate) *Result {
	result := &Result{
		Scanner:      e.cfg.Name,
		TotalScanned: len(batch),
	}

	for i := range batch {
		candidate := &batch[i]

		if dropped, by, detail := e.runFilters(candidate); dropped {
			result.Dropped = append(result.Dropped, DroppedCandidate{
				Ticker: candidate.Ticker,
				Reason: DropReasonFiltered,
				Filter: by,
				Detail: detail,
			})
			continue
		}

		result.Candidates = append(result.Candidates, e.score(candidate))
	}

	result.PassedFilters = len(result.Candidates)

	sort.Slice(result.Candidates, func(i, j int) bool {
		if result.Candidates[i].Score != result.Candidates[j].Score {
			return result.Candidates[i].Score > result.Candidates[j].Score
		}
		return result.Candidates[i].Ticker < result.Candidates[j].Ticker
	})

	if e.cfg.ScannerConfig.MaxCandidates > 0 && len(result.Candidates) > e.cfg.ScannerConfig.MaxCandidates {
		result.Candidates = result.Candidates[:e.cfg.ScannerConfig.MaxCandidates]
	}
	if len(result.Candidates) > 0 {
		result.HighScore = result.Candidates[0].Score
	}

	log.Printf("📊 Scanner %s: %d scanned, %d passed filters, high score %.1f",
		e.cfg.Name, result.TotalScanned, result.PassedFilters, result.HighScore)
	return result
}

// runFilters returns whether the candidate was dropped, and by which filter.
func (e *Evaluator) runFilters(c *RawCandidate) (dropped bool, by, detail string) {
	for _, filter := range e.filters {
		if passed, reason := filter.Evaluate(c); !passed {
			return true, filter.Name(), reason
		}
	}
	return false, "", ""
}

// score computes the weighted score for one surviving candidate. Each
// criterion's rule maps a feature onto [0, 10]; the weighted sum is rounded
// half-up to one decimal place.
func (e *Evaluator) score(c *RawCandidate) ScoredCandidate {
	breakdown := make(map[string]float64, len(e.cfg.Scoring))
	total := 0.0
	for criterion, weight := range e.cfg.Scoring {
		rule := e.cfg.Rules[criterion]
		value, _ := c.Feature(rule.Feature)
		criterionScore := rule.Score(value)
		breakdown[criterion] = criterionScore
		total += criterionScore * weight
	}

	return ScoredCandidate{
		Ticker:    c.Ticker,
		Score:     roundHalfUp1(total),
		Breakdown: breakdown,
		KeyData:   keyData(c),
	}
}

// keyData copies the candidate's headline figures into the decision record.
func keyData(c *RawCandidate) map[string]float64 {
	data := map[string]float64{
		"price":       c.Price,
		"volume_lots": c.VolumeLots,
	}
	if c.Value > 0 {
		data["value"] = c.Value
	}
	for name, v := range c.Features {
		data[name] = v
	}
	return data
}

// roundHalfUp1 rounds to one decimal place, half away from zero upward.
func roundHalfUp1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}
