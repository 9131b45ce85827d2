// Package triage maps scored candidates onto downstream actions. Routing is a
// pure function of the score: no hidden state, every score in [0, 10] lands in
// exactly one band.
package triage

import (
	"time"

	"deskgraph/scanner"
)

// Action is one of the fixed downstream actions.
type Action string

const (
	ActionFullAnalysis Action = "FULL_ANALYSIS"
	ActionWatchlist    Action = "WATCHLIST"
	ActionMonitor      Action = "MONITOR"
	ActionSkip         Action = "SKIP"
)

// Score band boundaries. Each band is inclusive on its lower bound and
// exclusive on its upper, except the topmost band which is closed at 10.
const (
	FullAnalysisThreshold = 7.5
	WatchlistThreshold    = 6.5
	MonitorThreshold      = 5.5
)

// Route classifies a score into its action band.
func Route(score float64) Action {
	switch {
	case score >= FullAnalysisThreshold:
		return ActionFullAnalysis
	case score >= WatchlistThreshold:
		return ActionWatchlist
	case score >= MonitorThreshold:
		return ActionMonitor
	default:
		return ActionSkip
	}
}

// Decision is the structured record emitted for one routed candidate.
type Decision struct {
	Ticker    string    `json:"ticker"`
	Score     float64   `json:"score"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Scanner   string    `json:"scanner"`
}

// CandidateDecision is one routed candidate inside a run record.
type CandidateDecision struct {
	Ticker    string             `json:"ticker"`
	Score     float64            `json:"score"`
	Action    Action             `json:"action"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
	KeyData   map[string]float64 `json:"key_data,omitempty"`
}

// RunSummary aggregates one scan run.
type RunSummary struct {
	TotalScanned  int     `json:"total_scanned"`
	PassedFilters int     `json:"passed_filters"`
	FullAnalysis  int     `json:"full_analysis"`
	Watchlist     int     `json:"watchlist"`
	Monitor       int     `json:"monitor"`
	Skipped       int     `json:"skipped"`
	HighScore     float64 `json:"high_score"`
}

// RunRecord is the structured output of one scanner run: every surviving
// candidate with its score and routed action, plus batch-level context.
type RunRecord struct {
	Scanner    string              `json:"scanner"`
	Timestamp  time.Time           `json:"timestamp"`
	Regime     string              `json:"regime"`
	Candidates []CandidateDecision `json:"candidates"`
	Summary    RunSummary          `json:"summary"`
}

// BuildRunRecord routes every scored candidate in a scanner result and
// assembles the run record. Candidate order (score desc, ticker asc) is
// preserved from the evaluator.
func BuildRunRecord(result *scanner.Result, regime string, at time.Time) *RunRecord {
	record := &RunRecord{
		Scanner:   result.Scanner,
		Timestamp: at,
		Regime:    regime,
		Summary: RunSummary{
			TotalScanned:  result.TotalScanned,
			PassedFilters: result.PassedFilters,
			HighScore:     result.HighScore,
		},
	}
	for _, c := range result.Candidates {
		action := Route(c.Score)
		record.Candidates = append(record.Candidates, CandidateDecision{
			Ticker:    c.Ticker,
			Score:     c.Score,
			Action:    action,
			Breakdown: c.Breakdown,
			KeyData:   c.KeyData,
		})
		switch action {
		case ActionFullAnalysis:
			record.Summary.FullAnalysis++
		case ActionWatchlist:
			record.Summary.Watchlist++
		case ActionMonitor:
			record.Summary.Monitor++
		default:
			record.Summary.Skipped++
		}
	}
	return record
}

// RunID is the stable identifier for the run, shared by the decision history
// tables and the scan run document registered in the knowledge graph.
func (r *RunRecord) RunID() string {
	return r.Scanner + "_" + r.Timestamp.UTC().Format("20060102T1504")
}

// Decisions flattens a run record into per-candidate decision records.
func (r *RunRecord) Decisions() []Decision {
	decisions := make([]Decision, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		decisions = append(decisions, Decision{
			Ticker:    c.Ticker,
			Score:     c.Score,
			Action:    c.Action,
			Timestamp: r.Timestamp,
			Scanner:   r.Scanner,
		})
	}
	return decisions
}

// FullAnalysisCandidates returns the candidates routed to FULL_ANALYSIS.
func (r *RunRecord) FullAnalysisCandidates() []CandidateDecision {
	var out []CandidateDecision
	for _, c := range r.Candidates {
		if c.Action == ActionFullAnalysis {
			out = append(out, c)
		}
	}
	return out
}
