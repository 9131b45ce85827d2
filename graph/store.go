package graph

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// Persister receives write-through copies of committed facts. The in-memory
// store remains the source of truth; persistence failures are logged, not
// propagated to callers.
type Persister interface {
	PersistNode(n *Node) error
	PersistRelationship(rel *Relationship) error
	PersistProvenance(edge *ProvenanceEdge) error
	PersistDocument(id string, attrs map[string]any, registeredAt time.Time) error
}

// temporalEntry is one entry in the creation-time index. Entries are appended
// under the write lock, so the slice is ordered by CreatedAt.
type temporalEntry struct {
	At time.Time
	ID NodeID
}

// Store is the in-memory knowledge graph with explicit constraint and index
// structures. All writes are serialized behind one write lock, which satisfies
// per-key mutual exclusion for concurrent upserts of the same natural key.
type Store struct {
	mu sync.RWMutex

	nodes map[NodeID]*Node
	byKey map[EntityType]map[string]NodeID // uniqueness-constraint index

	rels     map[RelID]*Relationship
	outgoing map[NodeID]map[RelType][]RelID

	postings map[string]map[string]map[NodeID]struct{} // field -> token -> nodes
	created  []temporalEntry

	prov    map[string][]*ProvenanceEdge // fact ID -> edges, oldest first
	provSeq int64

	persist Persister

	searchLimit      int
	maxTraverseDepth int
	maxTraverseNodes int
}

// NewStore creates an empty graph store with default query bounds.
func NewStore() *Store {
	return &Store{
		nodes:            make(map[NodeID]*Node),
		byKey:            make(map[EntityType]map[string]NodeID),
		rels:             make(map[RelID]*Relationship),
		outgoing:         make(map[NodeID]map[RelType][]RelID),
		postings:         make(map[string]map[string]map[NodeID]struct{}),
		prov:             make(map[string][]*ProvenanceEdge),
		searchLimit:      50,
		maxTraverseDepth: 10,
		maxTraverseNodes: 1000,
	}
}

// SetPersister enables write-through persistence of committed facts.
func (s *Store) SetPersister(p Persister) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist = p
}

// SetQueryBounds overrides the working-set caps for search and traversal.
func (s *Store) SetQueryBounds(searchLimit, maxDepth, maxNodes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if searchLimit > 0 {
		s.searchLimit = searchLimit
	}
	if maxDepth > 0 {
		s.maxTraverseDepth = maxDepth
	}
	if maxNodes > 0 {
		s.maxTraverseNodes = maxNodes
	}
}

// UpsertEntity creates the node if absent, else merges attributes into the
// existing node (last-writer-wins per attribute). The provenance reference is
// mandatory: the extraction edge is recorded in the same critical section as
// the write.
func (s *Store) UpsertEntity(t EntityType, key string, attrs map[string]any, prov Provenance) (NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUpsert(t, key, attrs, prov); err != nil {
		return "", err
	}
	return s.applyUpsert(t, key, attrs, prov), nil
}

// CreateRelationship creates a directed edge between two existing nodes.
// Creating the same (source, type, target) edge twice merges attributes
// instead of adding a duplicate. The provenance reference is mandatory.
func (s *Store) CreateRelationship(source, target NodeID, rt RelType, attrs map[string]any, prov Provenance) (RelID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRelationship(source, target, rt, attrs, prov, nil); err != nil {
		return "", err
	}
	return s.applyRelationship(source, target, rt, attrs, prov), nil
}

// FindByKey looks up a node by entity type and natural key. A miss returns a
// NotFoundError, which callers branch on with IsNotFound.
func (s *Store) FindByKey(t EntityType, key string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !KnownEntityType(t) {
		return nil, NewSchemaViolation(t, key, "unknown entity type")
	}
	id, ok := s.byKey[t][key]
	if !ok {
		return nil, NewNotFound(t, key)
	}
	return s.nodes[id].clone(), nil
}

// GetNode returns a node by its identifier.
func (s *Store) GetNode(id NodeID) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, NewNotFound(id.Type(), id.Key())
	}
	return n.clone(), nil
}

// GetRelationship returns a relationship by its identifier.
func (s *Store) GetRelationship(id RelID) (*Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel, ok := s.rels[id]
	if !ok {
		return nil, &NotFoundError{Key: string(id)}
	}
	return rel.clone(), nil
}

// RegisterDocument creates an immutable Document node without a provenance
// requirement: documents are the roots of the provenance chain, not derived
// facts. Re-registering an existing id is a no-op returning the existing node.
func (s *Store) RegisterDocument(id string, attrs map[string]any) (NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		return "", NewSchemaViolation(EntityDocument, "", "document id must not be empty")
	}
	if existing, ok := s.byKey[EntityDocument][id]; ok {
		return existing, nil
	}

	nodeID := s.createNode(EntityDocument, id, attrs)
	if s.persist != nil {
		if err := s.persist.PersistDocument(id, attrs, s.nodes[nodeID].CreatedAt); err != nil {
			log.Printf("⚠️  Failed to persist document %s: %v", id, err)
		}
	}
	return nodeID, nil
}

// HasDocument reports whether a document id has been registered.
func (s *Store) HasDocument(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[EntityDocument][id]
	return ok
}

// NodesCreatedBetween returns nodes created within [from, to], using the
// temporal index so the scan cost is bounded by the result, not graph size.
func (s *Store) NodesCreatedBetween(from, to time.Time) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.Search(len(s.created), func(i int) bool {
		return !s.created[i].At.Before(from)
	})
	var nodes []*Node
	for i := start; i < len(s.created); i++ {
		if s.created[i].At.After(to) {
			break
		}
		nodes = append(nodes, s.nodes[s.created[i].ID].clone())
	}
	return nodes
}

// Counts returns the number of nodes and relationships in the graph.
func (s *Store) Counts() (nodes, rels int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.rels)
}

// ============================================================================
// VALIDATION (shared by single writes and batch application)
// ============================================================================

// checkUpsert validates an upsert without mutating state.
func (s *Store) checkUpsert(t EntityType, key string, attrs map[string]any, prov Provenance) error {
	ts, ok := SchemaFor(t)
	if !ok {
		return NewSchemaViolation(t, key, "unknown entity type")
	}
	if key == "" {
		return NewSchemaViolation(t, key, fmt.Sprintf("natural key field %q must not be empty", ts.KeyField))
	}
	if err := prov.Validate(string(MakeNodeID(t, key))); err != nil {
		return err
	}
	if ts.Immutable {
		if _, exists := s.byKey[t][key]; exists {
			for attr := range attrs {
				if !appendOnlyAllowed(ts, attr) {
					return NewSchemaViolation(t, key, fmt.Sprintf("attribute %q is frozen after creation (append-only fields: %v)", attr, ts.AppendOnly))
				}
			}
		}
	}
	return nil
}

// checkRelationship validates a relationship create without mutating state.
// pending holds node IDs that will exist once the surrounding batch commits.
func (s *Store) checkRelationship(source, target NodeID, rt RelType, attrs map[string]any, prov Provenance, pending map[NodeID]struct{}) error {
	if !KnownRelType(rt) {
		return NewUnknownRelType(rt)
	}
	if !ValidPair(rt, source.Type(), target.Type()) {
		return NewTypeMismatch(rt, source.Type(), target.Type())
	}
	if !s.nodeWillExist(source, pending) {
		return NewNotFound(source.Type(), source.Key())
	}
	if !s.nodeWillExist(target, pending) {
		return NewNotFound(target.Type(), target.Key())
	}
	return prov.Validate(string(MakeRelID(source, rt, target)))
}

func (s *Store) nodeWillExist(id NodeID, pending map[NodeID]struct{}) bool {
	if _, ok := s.nodes[id]; ok {
		return true
	}
	if pending != nil {
		_, ok := pending[id]
		return ok
	}
	return false
}

// ============================================================================
// APPLICATION (callers hold the write lock and have validated the op)
// ============================================================================

func (s *Store) applyUpsert(t EntityType, key string, attrs map[string]any, prov Provenance) NodeID {
	id, exists := s.byKey[t][key]
	if !exists {
		id = s.createNode(t, key, attrs)
	} else {
		node := s.nodes[id]
		s.removeFromPostings(node)
		if node.Attributes == nil && len(attrs) > 0 {
			node.Attributes = make(map[string]any, len(attrs))
		}
		for k, v := range attrs {
			node.Attributes[k] = v
		}
		node.UpdatedAt = time.Now()
		s.addToPostings(node)
	}

	s.recordProvenance(string(id), prov)

	if s.persist != nil {
		if err := s.persist.PersistNode(s.nodes[id]); err != nil {
			log.Printf("⚠️  Failed to persist node %s: %v", id, err)
		}
	}
	return id
}

func (s *Store) applyRelationship(source, target NodeID, rt RelType, attrs map[string]any, prov Provenance) RelID {
	id := MakeRelID(source, rt, target)
	rel, exists := s.rels[id]
	if !exists {
		rel = &Relationship{
			ID:        id,
			Type:      rt,
			SourceID:  source,
			TargetID:  target,
			CreatedAt: time.Now(),
		}
		if len(attrs) > 0 {
			rel.Attributes = make(map[string]any, len(attrs))
			for k, v := range attrs {
				rel.Attributes[k] = v
			}
		}
		s.rels[id] = rel
		if s.outgoing[source] == nil {
			s.outgoing[source] = make(map[RelType][]RelID)
		}
		s.outgoing[source][rt] = append(s.outgoing[source][rt], id)
	} else {
		if rel.Attributes == nil && len(attrs) > 0 {
			rel.Attributes = make(map[string]any, len(attrs))
		}
		for k, v := range attrs {
			rel.Attributes[k] = v
		}
	}

	s.recordProvenance(string(id), prov)

	if s.persist != nil {
		if err := s.persist.PersistRelationship(rel); err != nil {
			log.Printf("⚠️  Failed to persist relationship %s: %v", id, err)
		}
	}
	return id
}

// createNode allocates a node and registers it in the uniqueness, temporal,
// and token indexes.
func (s *Store) createNode(t EntityType, key string, attrs map[string]any) NodeID {
	id := MakeNodeID(t, key)
	now := time.Now()
	node := &Node{
		ID:         id,
		Type:       t,
		Key:        key,
		Attributes: make(map[string]any, len(attrs)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for k, v := range attrs {
		node.Attributes[k] = v
	}

	s.nodes[id] = node
	if s.byKey[t] == nil {
		s.byKey[t] = make(map[string]NodeID)
	}
	s.byKey[t][key] = id
	s.created = append(s.created, temporalEntry{At: now, ID: id})
	s.addToPostings(node)
	return id
}

func (n *Node) clone() *Node {
	c := *n
	if n.Attributes != nil {
		c.Attributes = make(map[string]any, len(n.Attributes))
		for k, v := range n.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

func (r *Relationship) clone() *Relationship {
	c := *r
	if r.Attributes != nil {
		c.Attributes = make(map[string]any, len(r.Attributes))
		for k, v := range r.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}
