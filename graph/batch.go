package graph

// Batch collects the mutations derived from one source document so they can
// be committed atomically: validation runs for every operation before any
// state changes, and application cannot fail. A rejected batch leaves the
// graph untouched.
type Batch struct {
	ops []batchOp
}

type opKind int

const (
	opUpsert opKind = iota
	opRelationship
)

type batchOp struct {
	kind opKind

	entityType EntityType
	key        string

	source  NodeID
	target  NodeID
	relType RelType

	attrs map[string]any
	prov  Provenance
}

// NewBatch creates an empty mutation batch.
func NewBatch() *Batch {
	return &Batch{}
}

// UpsertEntity stages an entity upsert and returns the node ID it will
// produce on commit.
func (b *Batch) UpsertEntity(t EntityType, key string, attrs map[string]any, prov Provenance) NodeID {
	b.ops = append(b.ops, batchOp{
		kind:       opUpsert,
		entityType: t,
		key:        key,
		attrs:      attrs,
		prov:       prov,
	})
	return MakeNodeID(t, key)
}

// CreateRelationship stages a relationship create. Endpoints may be nodes
// staged earlier in the same batch.
func (b *Batch) CreateRelationship(source, target NodeID, rt RelType, attrs map[string]any, prov Provenance) RelID {
	b.ops = append(b.ops, batchOp{
		kind:    opRelationship,
		source:  source,
		target:  target,
		relType: rt,
		attrs:   attrs,
		prov:    prov,
	})
	return MakeRelID(source, rt, target)
}

// Len returns the number of staged operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Apply validates every staged operation against current state, then commits
// them under a single write lock hold. Either all operations commit or none
// do.
func (s *Store) Apply(b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Phase 1: validate. Track node IDs created earlier in the batch so
	// relationships can reference them before they exist.
	pending := make(map[NodeID]struct{})
	for _, op := range b.ops {
		switch op.kind {
		case opUpsert:
			if err := s.checkUpsert(op.entityType, op.key, op.attrs, op.prov); err != nil {
				return err
			}
			pending[MakeNodeID(op.entityType, op.key)] = struct{}{}
		case opRelationship:
			if err := s.checkRelationship(op.source, op.target, op.relType, op.attrs, op.prov, pending); err != nil {
				return err
			}
		}
	}

	// Phase 2: apply. No operation can fail past this point.
	for _, op := range b.ops {
		switch op.kind {
		case opUpsert:
			s.applyUpsert(op.entityType, op.key, op.attrs, op.prov)
		case opRelationship:
			s.applyRelationship(op.source, op.target, op.relType, op.attrs, op.prov)
		}
	}
	return nil
}
