// Package graph provides the in-memory knowledge graph for the desk knowledge system.
//
// This package includes:
//   - Typed entity and relationship storage with uniqueness constraints
//   - Full-text token search over a fixed set of searchable entity types
//   - Mandatory provenance edges linking every fact to a source document
//   - Bounded traversal for relationship queries
//
// Key Concepts:
//   - Natural keys: human-meaningful unique identifiers (ticker symbol, company name)
//   - System keys: generated identifiers for Analysis, Trade, and Learning records
//   - Valid-pair table: each relationship type is fixed to one (source, target) type pair
//   - Provenance: a mutation cannot be constructed without a document reference
//
// Storage Model:
//
//	The store is deliberately storage-engine-agnostic: uniqueness constraints,
//	token postings, and temporal indexes are maintained as explicit in-memory
//	structures rather than delegated to a database engine. Persistence is a
//	write-through concern handled by an optional Persister.
package graph

// EntityType identifies one of the typed node families in the knowledge graph.
type EntityType string

// Entity types. Each has exactly one natural key field (see Schema).
const (
	EntityTicker          EntityType = "Ticker"
	EntityCompany         EntityType = "Company"
	EntitySector          EntityType = "Sector"
	EntityIndustry        EntityType = "Industry"
	EntityProduct         EntityType = "Product"
	EntityStrategy        EntityType = "Strategy"
	EntityStructure       EntityType = "Structure"
	EntityPattern         EntityType = "Pattern"
	EntityBias            EntityType = "Bias"
	EntitySignal          EntityType = "Signal"
	EntityRisk            EntityType = "Risk"
	EntityExecutive       EntityType = "Executive"
	EntityAnalyst         EntityType = "Analyst"
	EntityAnalysis        EntityType = "Analysis"
	EntityTrade           EntityType = "Trade"
	EntityLearning        EntityType = "Learning"
	EntityDocument        EntityType = "Document"
	EntityTimeframe       EntityType = "Timeframe"
	EntityFinancialMetric EntityType = "FinancialMetric"
)

// RelType identifies a directed relationship type. Every relationship type is
// declared for exactly one (source, target) entity type pair, except MENTIONS
// whose target is polymorphic over all entity types.
type RelType string

// Relationship types with their declared endpoint pairs.
const (
	RelIssued         RelType = "ISSUED"          // Company -> Ticker
	RelBelongsTo      RelType = "BELONGS_TO"      // Company -> Sector
	RelInIndustry     RelType = "IN_INDUSTRY"     // Company -> Industry
	RelProduces       RelType = "PRODUCES"        // Company -> Product
	RelLedBy          RelType = "LED_BY"          // Company -> Executive
	RelCovers         RelType = "COVERS"          // Analyst -> Ticker
	RelCorrelatedWith RelType = "CORRELATED_WITH" // Ticker -> Ticker (coefficient, period, calculated_at)
	RelWorksFor       RelType = "WORKS_FOR"       // Strategy -> Ticker (win_rate, sample_size, last_used)
	RelUsesStructure  RelType = "USES_STRUCTURE"  // Strategy -> Structure
	RelExhibits       RelType = "EXHIBITS"        // Ticker -> Pattern
	RelHasBias        RelType = "HAS_BIAS"        // Ticker -> Bias
	RelSignals        RelType = "SIGNALS"         // Signal -> Ticker
	RelHasRisk        RelType = "HAS_RISK"        // Ticker -> Risk
	RelMeasuredBy     RelType = "MEASURED_BY"     // Ticker -> FinancialMetric
	RelAnalyzes       RelType = "ANALYZES"        // Analysis -> Ticker
	RelMentions       RelType = "MENTIONS"        // Analysis -> any
	RelBasedOn        RelType = "BASED_ON"        // Analysis -> Strategy
	RelTraded         RelType = "TRADED"          // Trade -> Ticker
	RelDerivedFrom    RelType = "DERIVED_FROM"    // Learning -> Trade
	RelOnTimeframe    RelType = "ON_TIMEFRAME"    // Analysis -> Timeframe
)

// RelExtractedFrom is the provenance edge type. It is owned by the provenance
// ledger rather than the domain pair table: its source is any fact (node or
// relationship) and its target is always a Document.
const RelExtractedFrom RelType = "EXTRACTED_FROM"

// AnyEntity is the wildcard target used by polymorphic relationship types.
const AnyEntity EntityType = "*"

// TypeSchema describes the constraints for one entity type.
type TypeSchema struct {
	KeyField   string // name of the natural key field ("symbol", "name", "id")
	SystemKey  bool   // key is generated by the system, not supplied by callers
	Searchable bool   // included in the full-text token index
	Immutable  bool   // attributes frozen after creation, except AppendOnly
	AppendOnly []string
}

// relPair declares the valid endpoint types for one relationship type.
type relPair struct {
	Source EntityType
	Target EntityType
}

// schema is the uniqueness-constraint map: entity type -> key field and policy.
var schema = map[EntityType]TypeSchema{
	EntityTicker:          {KeyField: "symbol", Searchable: true},
	EntityCompany:         {KeyField: "name", Searchable: true},
	EntitySector:          {KeyField: "name"},
	EntityIndustry:        {KeyField: "name"},
	EntityProduct:         {KeyField: "name", Searchable: true},
	EntityStrategy:        {KeyField: "name", Searchable: true},
	EntityStructure:       {KeyField: "name"},
	EntityPattern:         {KeyField: "name", Searchable: true},
	EntityBias:            {KeyField: "name", Searchable: true},
	EntitySignal:          {KeyField: "name"},
	EntityRisk:            {KeyField: "name", Searchable: true},
	EntityExecutive:       {KeyField: "name", Searchable: true},
	EntityAnalyst:         {KeyField: "name"},
	EntityAnalysis:        {KeyField: "id", SystemKey: true, Immutable: true, AppendOnly: []string{"status"}},
	EntityTrade:           {KeyField: "id", SystemKey: true, Immutable: true, AppendOnly: []string{"status", "outcome"}},
	EntityLearning:        {KeyField: "id", SystemKey: true, Immutable: true, AppendOnly: []string{"status"}},
	EntityDocument:        {KeyField: "id", Immutable: true},
	EntityTimeframe:       {KeyField: "name"},
	EntityFinancialMetric: {KeyField: "name"},
}

// validPairs is the declared (source, target) pair per relationship type.
var validPairs = map[RelType]relPair{
	RelIssued:         {EntityCompany, EntityTicker},
	RelBelongsTo:      {EntityCompany, EntitySector},
	RelInIndustry:     {EntityCompany, EntityIndustry},
	RelProduces:       {EntityCompany, EntityProduct},
	RelLedBy:          {EntityCompany, EntityExecutive},
	RelCovers:         {EntityAnalyst, EntityTicker},
	RelCorrelatedWith: {EntityTicker, EntityTicker},
	RelWorksFor:       {EntityStrategy, EntityTicker},
	RelUsesStructure:  {EntityStrategy, EntityStructure},
	RelExhibits:       {EntityTicker, EntityPattern},
	RelHasBias:        {EntityTicker, EntityBias},
	RelSignals:        {EntitySignal, EntityTicker},
	RelHasRisk:        {EntityTicker, EntityRisk},
	RelMeasuredBy:     {EntityTicker, EntityFinancialMetric},
	RelAnalyzes:       {EntityAnalysis, EntityTicker},
	RelMentions:       {EntityAnalysis, AnyEntity},
	RelBasedOn:        {EntityAnalysis, EntityStrategy},
	RelTraded:         {EntityTrade, EntityTicker},
	RelDerivedFrom:    {EntityLearning, EntityTrade},
	RelOnTimeframe:    {EntityAnalysis, EntityTimeframe},
}

// searchFields are the fields covered by the full-text token index for
// searchable entity types.
var searchFields = []string{"name", "symbol", "description"}

// KnownEntityType reports whether t is a declared entity type.
func KnownEntityType(t EntityType) bool {
	_, ok := schema[t]
	return ok
}

// KnownRelType reports whether rt is a declared domain relationship type.
func KnownRelType(rt RelType) bool {
	_, ok := validPairs[rt]
	return ok
}

// SchemaFor returns the type schema for a declared entity type.
func SchemaFor(t EntityType) (TypeSchema, bool) {
	s, ok := schema[t]
	return s, ok
}

// ValidPair reports whether (source, target) is the declared pair for rt.
func ValidPair(rt RelType, source, target EntityType) bool {
	pair, ok := validPairs[rt]
	if !ok {
		return false
	}
	if pair.Source != source {
		return false
	}
	return pair.Target == AnyEntity || pair.Target == target
}

// DeclaredPair returns the declared (source, target) types for rt.
func DeclaredPair(rt RelType) (EntityType, EntityType, bool) {
	pair, ok := validPairs[rt]
	return pair.Source, pair.Target, ok
}

// SearchableTypes returns the entity types covered by the token index.
func SearchableTypes() []EntityType {
	types := make([]EntityType, 0, 8)
	for t, s := range schema {
		if s.Searchable {
			types = append(types, t)
		}
	}
	return types
}

// appendOnlyAllowed reports whether attr may still be written after creation
// for an immutable entity type.
func appendOnlyAllowed(s TypeSchema, attr string) bool {
	for _, allowed := range s.AppendOnly {
		if allowed == attr {
			return true
		}
	}
	return false
}
