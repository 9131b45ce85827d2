package scanner

// RawCandidate is one symbol in an incoming scan batch: a ticker plus the
// feature values the scanner's scoring rules read.
type RawCandidate struct {
	Ticker      string             `json:"ticker"`
	MarketBoard string             `json:"market_board,omitempty"`
	Price       float64            `json:"price"`
	VolumeLots  float64            `json:"volume_lots"`
	Value       float64            `json:"value"`
	Features    map[string]float64 `json:"features"`
}

// Feature returns a named feature value and whether it is present.
func (c *RawCandidate) Feature(name string) (float64, bool) {
	v, ok := c.Features[name]
	return v, ok
}

// ScoredCandidate is a candidate that survived the filters, with its weighted
// score and the per-criterion breakdown.
type ScoredCandidate struct {
	Ticker    string             `json:"ticker"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown"`
	KeyData   map[string]float64 `json:"key_data,omitempty"`
}

// DropReasonFiltered marks candidates removed by the filter pipeline.
const DropReasonFiltered = "FILTERED"

// DroppedCandidate records a candidate removed before scoring.
type DroppedCandidate struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"` // always FILTERED
	Filter string `json:"filter"` // which filter dropped it
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of evaluating one batch against one scanner.
type Result struct {
	Scanner       string             `json:"scanner"`
	Candidates    []ScoredCandidate  `json:"candidates"` // score desc, ties by ticker asc
	Dropped       []DroppedCandidate `json:"dropped,omitempty"`
	TotalScanned  int                `json:"total_scanned"`
	PassedFilters int                `json:"passed_filters"`
	HighScore     float64            `json:"high_score"`
}
