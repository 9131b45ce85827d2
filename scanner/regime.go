package scanner

// Market regimes stamped onto scan run records.
const (
	RegimeRiskOn  = "RISK_ON"
	RegimeNeutral = "NEUTRAL"
	RegimeRiskOff = "RISK_OFF"
)

// changeFeature is the per-candidate feature used to measure batch breadth.
const changeFeature = "change_pct"

// DetectRegime classifies a batch's market regime from breadth: the share of
// candidates advancing versus declining. Batches without change data are
// NEUTRAL; the classification is deterministic so a run record's regime can
// always be re-derived from its input batch.
func DetectRegime(batch []RawCandidate) string {
	advancing, declining := 0, 0
	for i := range batch {
		change, ok := batch[i].Feature(changeFeature)
		if !ok {
			continue
		}
		switch {
		case change > 0:
			advancing++
		case change < 0:
			declining++
		}
	}

	total := advancing + declining
	if total == 0 {
		return RegimeNeutral
	}

	breadth := float64(advancing) / float64(total)
	switch {
	case breadth >= 0.65:
		return RegimeRiskOn
	case breadth <= 0.35:
		return RegimeRiskOff
	default:
		return RegimeNeutral
	}
}
