package graph

import (
	"depgrapher/internal/engine/identity"
	"errors"
	"fmt"
)

var ErrImpactTargetNotFound = errors.New("impact target not found")

// ImpactReport lists which modules would be affected by changing every
// version of one module name.
type ImpactReport struct {
	TargetName            string
	Versions              []identity.Version
	DirectReferencers     []identity.Identity
	TransitiveReferencers []identity.Identity
}

type ImpactTargetError struct {
	Target string
}

func (e *ImpactTargetError) Error() string {
	return fmt.Sprintf("%v: %s", ErrImpactTargetNotFound, e.Target)
}

func (e *ImpactTargetError) Unwrap() error {
	return ErrImpactTargetNotFound
}

func AnalyzeImpact(s *Store, name string) (ImpactReport, error) {
	versions := s.Versions(name)
	if len(versions) == 0 {
		return ImpactReport{}, &ImpactTargetError{Target: name}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	report := ImpactReport{TargetName: name, Versions: versions}

	directSet := make(map[identity.Identity]struct{})
	for _, v := range versions {
		for ref := range s.referencers[identity.New(name, v)] {
			if ref.Name == name {
				continue
			}
			directSet[ref] = struct{}{}
		}
	}
	report.DirectReferencers = sortedSet(directSet)

	queue := append([]identity.Identity(nil), report.DirectReferencers...)
	seen := make(map[identity.Identity]bool, len(queue))
	for _, id := range queue {
		seen[id] = true
	}

	transitive := make(map[identity.Identity]struct{})
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for next := range s.referencers[curr] {
			if seen[next] || next.Name == name {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			transitive[next] = struct{}{}
		}
	}
	report.TransitiveReferencers = sortedSet(transitive)

	return report, nil
}
