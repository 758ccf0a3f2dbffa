package formats

import (
	"depgrapher/internal/engine/graph"
	"strings"
)

// CircularGenerator lists every module that transitively depends on another
// version of itself, one per line.
type CircularGenerator struct {
	store *graph.Store
}

func NewCircularGenerator(s *graph.Store) *CircularGenerator {
	return &CircularGenerator{store: s}
}

func (c *CircularGenerator) Generate() (string, error) {
	var b strings.Builder
	for _, id := range graph.SelfDependencies(c.store) {
		b.WriteString(id.String())
		b.WriteString("\n")
	}
	return b.String(), nil
}
