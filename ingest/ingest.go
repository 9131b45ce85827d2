package ingest

import (
	"fmt"
	"log"
	"strings"

	"deskgraph/graph"
	"deskgraph/triage"
)

// defaultConfidence is used for provenance edges when a document does not
// declare its own extraction confidence.
const defaultConfidence = 1.0

// Ingester writes document-derived facts into the knowledge graph. All
// validation runs before any write, so a rejected document leaves the graph
// unchanged.
type Ingester struct {
	store *graph.Store
}

// NewIngester creates a new ingester over the given graph store.
func NewIngester(store *graph.Store) *Ingester {
	return &Ingester{store: store}
}

// IngestAnalysis commits every fact derivable from an analysis document and
// returns the Analysis node ID. Fails with MalformedDocumentError if a
// required field (id, ticker, created_at) is absent.
func (in *Ingester) IngestAnalysis(doc *AnalysisDocument) (graph.NodeID, error) {
	if doc.ID == "" {
		return "", &MalformedDocumentError{Field: "id", Reason: "is required"}
	}
	if doc.Ticker == "" {
		return "", &MalformedDocumentError{DocumentID: doc.ID, Field: "ticker", Reason: "is required"}
	}
	if doc.CreatedAt.IsZero() {
		return "", &MalformedDocumentError{DocumentID: doc.ID, Field: "created_at", Reason: "is required"}
	}
	if _, _, err := ParseDocumentID(doc.ID); err != nil {
		return "", err
	}

	confidence := doc.Confidence
	if confidence == 0 {
		confidence = defaultConfidence
	}
	prov := func(fieldPath string) graph.Provenance {
		return graph.Provenance{DocumentID: doc.ID, FieldPath: fieldPath, Confidence: confidence}
	}

	batch := graph.NewBatch()

	tickerID := batch.UpsertEntity(graph.EntityTicker, doc.Ticker, nil, prov("ticker"))

	analysisID := batch.UpsertEntity(graph.EntityAnalysis, graph.NewSystemKey(), map[string]any{
		"description": doc.Summary,
		"date":        doc.CreatedAt,
		"status":      "final",
	}, prov("summary"))
	batch.CreateRelationship(analysisID, tickerID, graph.RelAnalyzes, nil, prov("ticker"))

	if doc.Strategy != "" {
		strategyID := batch.UpsertEntity(graph.EntityStrategy, doc.Strategy, nil, prov("strategy"))
		batch.CreateRelationship(analysisID, strategyID, graph.RelBasedOn, nil, prov("strategy"))
	}
	if doc.Bias != "" {
		biasID := batch.UpsertEntity(graph.EntityBias, doc.Bias, nil, prov("bias"))
		batch.CreateRelationship(tickerID, biasID, graph.RelHasBias, nil, prov("bias"))
	}
	if doc.Timeframe != "" {
		timeframeID := batch.UpsertEntity(graph.EntityTimeframe, doc.Timeframe, nil, prov("timeframe"))
		batch.CreateRelationship(analysisID, timeframeID, graph.RelOnTimeframe, nil, prov("timeframe"))
	}
	for i, risk := range doc.Risks {
		riskID := batch.UpsertEntity(graph.EntityRisk, risk, nil, prov(fmt.Sprintf("risks[%d]", i)))
		batch.CreateRelationship(tickerID, riskID, graph.RelHasRisk, nil, prov(fmt.Sprintf("risks[%d]", i)))
	}
	for i, mention := range doc.Mentions {
		fieldPath := fmt.Sprintf("mentions[%d]", i)
		mentionID := batch.UpsertEntity(graph.EntityType(mention.Type), mention.Name, nil, prov(fieldPath))
		batch.CreateRelationship(analysisID, mentionID, graph.RelMentions, nil, prov(fieldPath))
	}

	if err := in.store.Apply(batch); err != nil {
		return "", err
	}
	if _, err := in.store.RegisterDocument(doc.ID, map[string]any{
		"doc_type": DocTypeAnalysis,
		"topic":    doc.Ticker,
		"date":     doc.CreatedAt,
	}); err != nil {
		return "", err
	}

	log.Printf("✅ Ingested analysis %s: %d facts committed", doc.ID, batch.Len())
	return analysisID, nil
}

// IngestTrade commits a trade document as an immutable Trade node with a
// TRADED edge to its ticker. The outcome, when present later, is appended via
// RecordTradeOutcome.
func (in *Ingester) IngestTrade(doc *TradeDocument) (graph.NodeID, error) {
	if doc.ID == "" {
		return "", &MalformedDocumentError{Field: "id", Reason: "is required"}
	}
	if doc.Ticker == "" {
		return "", &MalformedDocumentError{DocumentID: doc.ID, Field: "ticker", Reason: "is required"}
	}
	if doc.Timestamp.IsZero() {
		return "", &MalformedDocumentError{DocumentID: doc.ID, Field: "timestamp", Reason: "is required"}
	}
	if _, _, err := ParseDocumentID(doc.ID); err != nil {
		return "", err
	}

	prov := func(fieldPath string) graph.Provenance {
		return graph.Provenance{DocumentID: doc.ID, FieldPath: fieldPath, Confidence: defaultConfidence}
	}

	batch := graph.NewBatch()
	tickerID := batch.UpsertEntity(graph.EntityTicker, doc.Ticker, nil, prov("ticker"))

	attrs := map[string]any{
		"date":   doc.Timestamp,
		"status": "open",
	}
	if doc.Direction != "" {
		attrs["direction"] = doc.Direction
	}
	if doc.Strategy != "" {
		attrs["strategy"] = doc.Strategy
	}
	if doc.Outcome != "" {
		attrs["outcome"] = doc.Outcome
		attrs["status"] = "closed"
	}
	tradeID := batch.UpsertEntity(graph.EntityTrade, graph.NewSystemKey(), attrs, prov("timestamp"))
	batch.CreateRelationship(tradeID, tickerID, graph.RelTraded, nil, prov("ticker"))

	if doc.Strategy != "" {
		batch.UpsertEntity(graph.EntityStrategy, doc.Strategy, nil, prov("strategy"))
	}

	if err := in.store.Apply(batch); err != nil {
		return "", err
	}
	if _, err := in.store.RegisterDocument(doc.ID, map[string]any{
		"doc_type": DocTypeTrade,
		"topic":    doc.Ticker,
		"date":     doc.Timestamp,
	}); err != nil {
		return "", err
	}

	log.Printf("✅ Ingested trade %s for %s", doc.ID, doc.Ticker)
	return tradeID, nil
}

// RecordTradeOutcome appends the outcome of a closed trade. Trade nodes are
// immutable apart from their append-only status and outcome fields, so any
// other attribute write is rejected by the store.
func (in *Ingester) RecordTradeOutcome(tradeKey, outcome, documentID string) error {
	_, err := in.store.UpsertEntity(graph.EntityTrade, tradeKey, map[string]any{
		"outcome": outcome,
		"status":  "closed",
	}, graph.Provenance{DocumentID: documentID, FieldPath: "outcome", Confidence: defaultConfidence})
	return err
}

// IngestLearning commits a learning distilled from a closed trade, linked via
// DERIVED_FROM.
func (in *Ingester) IngestLearning(doc *LearningDocument) (graph.NodeID, error) {
	if doc.ID == "" {
		return "", &MalformedDocumentError{Field: "id", Reason: "is required"}
	}
	if doc.TradeKey == "" {
		return "", &MalformedDocumentError{DocumentID: doc.ID, Field: "trade_key", Reason: "is required"}
	}
	if doc.Timestamp.IsZero() {
		return "", &MalformedDocumentError{DocumentID: doc.ID, Field: "timestamp", Reason: "is required"}
	}

	prov := func(fieldPath string) graph.Provenance {
		return graph.Provenance{DocumentID: doc.ID, FieldPath: fieldPath, Confidence: defaultConfidence}
	}

	batch := graph.NewBatch()
	learningID := batch.UpsertEntity(graph.EntityLearning, graph.NewSystemKey(), map[string]any{
		"description": doc.Lesson,
		"date":        doc.Timestamp,
	}, prov("lesson"))
	batch.CreateRelationship(learningID, graph.MakeNodeID(graph.EntityTrade, doc.TradeKey), graph.RelDerivedFrom, nil, prov("trade_key"))

	if err := in.store.Apply(batch); err != nil {
		return "", err
	}
	if _, err := in.store.RegisterDocument(doc.ID, map[string]any{
		"doc_type": DocTypeLearning,
		"date":     doc.Timestamp,
	}); err != nil {
		return "", err
	}
	return learningID, nil
}

// IngestScanRun records the knowledge produced by one scanner run: the
// scanner as a Signal entity and a SIGNALS edge to every candidate routed to
// FULL_ANALYSIS, with the run record itself as the provenance document.
// Returns the registered document id.
func (in *Ingester) IngestScanRun(run *triage.RunRecord) (string, error) {
	candidates := run.FullAnalysisCandidates()
	if len(candidates) == 0 {
		return "", nil
	}

	docID := FormatDocumentID(strings.ReplaceAll(run.Scanner, " ", "-"), run.Timestamp)
	batch := graph.NewBatch()

	signalID := batch.UpsertEntity(graph.EntitySignal, run.Scanner, map[string]any{
		"description": fmt.Sprintf("scanner %s", run.Scanner),
	}, graph.Provenance{DocumentID: docID, FieldPath: "scanner", Confidence: defaultConfidence})

	for i, c := range candidates {
		fieldPath := fmt.Sprintf("candidates[%d]", i)
		// Score is on a 0-10 scale; the edge's confidence mirrors it on 0-1.
		confidence := c.Score / 10.0
		prov := graph.Provenance{DocumentID: docID, FieldPath: fieldPath, Confidence: confidence}

		tickerID := batch.UpsertEntity(graph.EntityTicker, c.Ticker, nil, prov)
		batch.CreateRelationship(signalID, tickerID, graph.RelSignals, map[string]any{
			"score":  c.Score,
			"action": string(c.Action),
			"regime": run.Regime,
		}, prov)
	}

	if err := in.store.Apply(batch); err != nil {
		return "", err
	}
	if _, err := in.store.RegisterDocument(docID, map[string]any{
		"doc_type": DocTypeScanRun,
		"topic":    run.Scanner,
		"date":     run.Timestamp,
	}); err != nil {
		return "", err
	}

	log.Printf("🧠 Scan run %s: %d FULL_ANALYSIS candidates written to knowledge graph", docID, len(candidates))
	return docID, nil
}
