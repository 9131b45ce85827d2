package graph

import (
	"sort"
	"strings"
	"unicode"
)

// tokenize lowercases s and splits it on non-alphanumeric runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// fieldValues returns the indexed field values for a node: its attributes
// plus the natural key exposed under the type's key field, so a Ticker is
// findable by symbol even when no attributes were ever written.
func fieldValues(node *Node) map[string]string {
	ts, _ := SchemaFor(node.Type)
	values := make(map[string]string, len(searchFields))
	for _, field := range searchFields {
		if v := node.Attr(field); v != "" {
			values[field] = v
		}
	}
	for _, field := range searchFields {
		if ts.KeyField == field {
			values[field] = node.Key
		}
	}
	return values
}

// addToPostings indexes a searchable node's fields into the token index.
// Caller holds the write lock.
func (s *Store) addToPostings(node *Node) {
	ts, _ := SchemaFor(node.Type)
	if !ts.Searchable {
		return
	}
	for field, value := range fieldValues(node) {
		if s.postings[field] == nil {
			s.postings[field] = make(map[string]map[NodeID]struct{})
		}
		for _, token := range tokenize(value) {
			if s.postings[field][token] == nil {
				s.postings[field][token] = make(map[NodeID]struct{})
			}
			s.postings[field][token][node.ID] = struct{}{}
		}
	}
}

// removeFromPostings drops a node's tokens ahead of an attribute merge so
// stale postings don't accumulate. Caller holds the write lock.
func (s *Store) removeFromPostings(node *Node) {
	ts, _ := SchemaFor(node.Type)
	if !ts.Searchable {
		return
	}
	for field, value := range fieldValues(node) {
		for _, token := range tokenize(value) {
			if set, ok := s.postings[field][token]; ok {
				delete(set, node.ID)
			}
		}
	}
}

// Search runs a full-text token match over the name/symbol/description fields
// of the searchable entity types. Relevance is the count of distinct query
// tokens matched; ties are broken by natural-key lexical order. Results are
// capped at the configured search limit.
//
// candidateTypes restricts results to a subset of the searchable types; nil
// means all of them. Non-searchable types are ignored even when requested.
func (s *Store) Search(query string, candidateTypes []EntityType) []SearchHit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	allowed := make(map[EntityType]bool)
	if len(candidateTypes) == 0 {
		for _, t := range SearchableTypes() {
			allowed[t] = true
		}
	} else {
		for _, t := range candidateTypes {
			if ts, ok := SchemaFor(t); ok && ts.Searchable {
				allowed[t] = true
			}
		}
	}

	matched := make(map[NodeID]map[string]struct{}) // node -> matched tokens
	for _, token := range tokens {
		for _, byToken := range s.postings {
			for id := range byToken[token] {
				if !allowed[id.Type()] {
					continue
				}
				if matched[id] == nil {
					matched[id] = make(map[string]struct{})
				}
				matched[id][token] = struct{}{}
			}
		}
	}

	hits := make([]SearchHit, 0, len(matched))
	for id, tokensHit := range matched {
		hits = append(hits, SearchHit{
			Node:      s.nodes[id].clone(),
			Relevance: float64(len(tokensHit)),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Relevance != hits[j].Relevance {
			return hits[i].Relevance > hits[j].Relevance
		}
		return hits[i].Node.Key < hits[j].Node.Key
	})

	if len(hits) > s.searchLimit {
		hits = hits[:s.searchLimit]
	}
	return hits
}
