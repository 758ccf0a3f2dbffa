package formats

import (
	"depgrapher/internal/engine/identity"
	"strings"
)

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// nodeKey is the PlantUML member reference for one module version.
func nodeKey(id identity.Identity) string {
	return escapeLabel(id.Name) + "::" + id.Version.String()
}

func markdownCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
