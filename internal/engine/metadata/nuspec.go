package metadata

import (
	"depgrapher/internal/engine/identity"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

type nuspecPackage struct {
	Metadata nuspecMetadata `xml:"metadata"`
}

type nuspecMetadata struct {
	ID           string             `xml:"id"`
	Version      string             `xml:"version"`
	Dependencies nuspecDependencies `xml:"dependencies"`
}

type nuspecDependencies struct {
	Groups       []nuspecGroup      `xml:"group"`
	Dependencies []nuspecDependency `xml:"dependency"`
}

type nuspecGroup struct {
	TargetFramework string             `xml:"targetFramework,attr"`
	Dependencies    []nuspecDependency `xml:"dependency"`
}

type nuspecDependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

// NuspecReader reads NuGet package manifests. When the manifest declares
// per-framework dependency groups, the group matching PreferredFramework is
// used, else the first group.
type NuspecReader struct {
	PreferredFramework string
}

func (r *NuspecReader) Read(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mod, err := r.Decode(f)
	if err != nil {
		return nil, malformed(path, err)
	}
	return mod, nil
}

// Decode parses a manifest from rd.
func (r *NuspecReader) Decode(rd io.Reader) (*Module, error) {
	var pkg nuspecPackage
	if err := xml.NewDecoder(rd).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("decode nuspec: %w", err)
	}

	id, err := identity.Parse(pkg.Metadata.ID, pkg.Metadata.Version)
	if err != nil {
		return nil, err
	}

	mod := &Module{ID: id, TargetPlatform: identity.UnknownPlatform}

	deps := append([]nuspecDependency(nil), pkg.Metadata.Dependencies.Dependencies...)
	if group, ok := r.selectGroup(pkg.Metadata.Dependencies.Groups); ok {
		mod.TargetPlatform = normalizePlatform(group.TargetFramework)
		deps = append(deps, group.Dependencies...)
	}

	seen := make(map[identity.Identity]bool, len(deps))
	for _, dep := range deps {
		lower, err := RangeLowerBound(dep.Version)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", dep.ID, err)
		}
		ref, err := identity.Parse(dep.ID, lower)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", dep.ID, err)
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		mod.References = append(mod.References, ref)
	}
	return mod, nil
}

func (r *NuspecReader) selectGroup(groups []nuspecGroup) (nuspecGroup, bool) {
	if len(groups) == 0 {
		return nuspecGroup{}, false
	}
	preferred := strings.TrimSpace(r.PreferredFramework)
	if preferred != "" {
		for _, g := range groups {
			if strings.EqualFold(strings.TrimSpace(g.TargetFramework), preferred) {
				return g, true
			}
		}
	}
	return groups[0], true
}

// RangeLowerBound reduces a NuGet version range to the version the package
// manager would pick: the lower bound, or the upper bound of a range that has
// no lower bound. A bare version means "this version or higher".
func RangeLowerBound(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty version range")
	}
	if s[0] != '[' && s[0] != '(' {
		return s, nil
	}
	if len(s) < 2 || (s[len(s)-1] != ']' && s[len(s)-1] != ')') {
		return "", fmt.Errorf("unterminated version range %q", raw)
	}

	inner := s[1 : len(s)-1]
	lower, upper, hasComma := strings.Cut(inner, ",")
	lower = strings.TrimSpace(lower)
	upper = strings.TrimSpace(upper)
	if !hasComma {
		upper = lower
	}
	if lower != "" {
		return lower, nil
	}
	if upper != "" {
		return upper, nil
	}
	return "", fmt.Errorf("version range %q has no bounds", raw)
}
