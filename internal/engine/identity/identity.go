// # internal/engine/identity/identity.go
package identity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// UnknownPlatform is recorded for modules that declare no target platform.
const UnknownPlatform = "unknown"

// Version is a four-part module version (major.minor.build.revision).
// Components that were not present in the source string are zero.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// Identity names one module instance in the graph. It is a comparable value,
// so two identities with equal name and version are the same map key no matter
// which artifact they were read from.
type Identity struct {
	Name    string
	Version Version
}

func New(name string, v Version) Identity {
	return Identity{Name: name, Version: v}
}

// ParseVersion accepts one to four dot-separated non-negative integers.
// Prerelease and build metadata suffixes ("-beta.1", "+sha") are dropped.
func ParseVersion(raw string) (Version, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return Version{}, fmt.Errorf("parse version %q: empty", raw)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("parse version %q: too many components", raw)
	}

	var nums [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("parse version %q: invalid component %q", raw, p)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}, nil
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Parse builds an identity from a name and a raw version string.
func Parse(name, rawVersion string) (Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Identity{}, fmt.Errorf("module name must not be empty")
	}
	v, err := ParseVersion(rawVersion)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Name: name, Version: v}, nil
}

func MustParse(name, rawVersion string) Identity {
	id, err := Parse(name, rawVersion)
	if err != nil {
		panic(err)
	}
	return id
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
func Compare(a, b Version) int {
	switch {
	case a.Major != b.Major:
		return cmpInt(a.Major, b.Major)
	case a.Minor != b.Minor:
		return cmpInt(a.Minor, b.Minor)
	case a.Build != b.Build:
		return cmpInt(a.Build, b.Build)
	default:
		return cmpInt(a.Revision, b.Revision)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (v Version) Less(other Version) bool {
	return Compare(v, other) < 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// Short is the normalized form package registries expect: the revision is
// only rendered when it is non-zero.
func (v Version) Short() string {
	if v.Revision != 0 {
		return v.String()
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

func (id Identity) String() string {
	return fmt.Sprintf("%s, Version=%s", id.Name, id.Version)
}

// CacheKey is the directory name used for this module in the local package cache.
func (id Identity) CacheKey() string {
	return fmt.Sprintf("%s.%d.%d.%d", id.Name, id.Version.Major, id.Version.Minor, id.Version.Build)
}

// Less orders identities by name, then by version.
func Less(a, b Identity) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return Compare(a.Version, b.Version) < 0
}

func SortVersions(vs []Version) {
	sort.Slice(vs, func(i, j int) bool { return Compare(vs[i], vs[j]) < 0 })
}

func SortIdentities(ids []Identity) {
	sort.Slice(ids, func(i, j int) bool { return Less(ids[i], ids[j]) })
}

// MinMax returns the lowest and highest version in vs. ok is false for an empty slice.
func MinMax(vs []Version) (lo, hi Version, ok bool) {
	if len(vs) == 0 {
		return Version{}, Version{}, false
	}
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		if Compare(v, lo) < 0 {
			lo = v
		}
		if Compare(v, hi) > 0 {
			hi = v
		}
	}
	return lo, hi, true
}
