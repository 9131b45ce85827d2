package graph

import (
	"sort"
)

// Traverse walks outgoing edges of the given relationship type from startID
// using breadth-first search and returns the set of reachable nodes,
// excluding the start node itself. Depth and result count are clamped to the
// store's configured bounds so a malformed query cannot expand an unbounded
// working set.
//
// Typical use: Traverse(strategyID, RelWorksFor, 1) lists every ticker a
// strategy is known to work for.
func (s *Store) Traverse(startID NodeID, rt RelType, maxDepth int) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !KnownRelType(rt) {
		return nil, NewUnknownRelType(rt)
	}
	if _, ok := s.nodes[startID]; !ok {
		return nil, NewNotFound(startID.Type(), startID.Key())
	}
	if maxDepth <= 0 || maxDepth > s.maxTraverseDepth {
		maxDepth = s.maxTraverseDepth
	}

	visited := map[NodeID]struct{}{startID: {}}
	frontier := []NodeID{startID}
	var reachable []*Node

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []NodeID
		for _, id := range frontier {
			for _, relID := range s.outgoing[id][rt] {
				target := s.rels[relID].TargetID
				if _, seen := visited[target]; seen {
					continue
				}
				visited[target] = struct{}{}
				reachable = append(reachable, s.nodes[target].clone())
				if len(reachable) >= s.maxTraverseNodes {
					return sortByKey(reachable), nil
				}
				next = append(next, target)
			}
		}
		frontier = next
	}
	return sortByKey(reachable), nil
}

// Neighbors returns the directly related nodes for every outgoing
// relationship type, used for relationship summaries.
func (s *Store) Neighbors(id NodeID) (map[RelType][]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, NewNotFound(id.Type(), id.Key())
	}

	result := make(map[RelType][]*Node)
	for rt, relIDs := range s.outgoing[id] {
		for _, relID := range relIDs {
			result[rt] = append(result[rt], s.nodes[s.rels[relID].TargetID].clone())
		}
		sortByKey(result[rt])
	}
	return result, nil
}

func sortByKey(nodes []*Node) []*Node {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Key < nodes[j].Key
	})
	return nodes
}
