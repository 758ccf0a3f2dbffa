// # internal/engine/graph/detect.go
package graph

import "depgrapher/internal/engine/identity"

// HasSelfDependency reports whether start transitively depends on any module
// sharing its name, including start itself reached again through a loop.
// The walk keeps its own visited set so it terminates on cyclic graphs.
func HasSelfDependency(s *Store, start identity.Identity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := map[identity.Identity]bool{start: true}
	stack := []identity.Identity{start}

	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for next := range s.dependencies[curr] {
			if next.Name == start.Name {
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			stack = append(stack, next)
		}
	}
	return false
}

// SelfDependencies runs HasSelfDependency for every processed module and
// returns the flagged identities sorted. Entries are not merged by name.
func SelfDependencies(s *Store) []identity.Identity {
	var flagged []identity.Identity
	for _, id := range s.Modules() {
		if HasSelfDependency(s, id) {
			flagged = append(flagged, id)
		}
	}
	return flagged
}

// FindDependencyChain returns the shortest dependency path from one module to
// another, following edges in sorted order so the result is deterministic.
func FindDependencyChain(s *Store, from, to identity.Identity) ([]identity.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.dependencies[from]; !ok {
		return nil, false
	}
	if from == to {
		return []identity.Identity{from}, true
	}

	queue := []identity.Identity{from}
	visited := map[identity.Identity]bool{from: true}
	prev := make(map[identity.Identity]identity.Identity)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range sortedSet(s.dependencies[curr]) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []identity.Identity{to}
				for node := to; node != from; {
					p := prev[node]
					path = append(path, p)
					node = p
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}
