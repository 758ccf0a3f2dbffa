package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		raw  string
		want Version
	}{
		{"1", Version{Major: 1}},
		{"1.2", Version{Major: 1, Minor: 2}},
		{"1.2.3", Version{Major: 1, Minor: 2, Build: 3}},
		{"1.2.3.4", Version{Major: 1, Minor: 2, Build: 3, Revision: 4}},
		{" 4.0.1-beta.2 ", Version{Major: 4, Build: 1}},
		{"2.1.0+sha.abc", Version{Major: 2, Minor: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseVersion(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	for _, raw := range []string{"", "a.b", "1.2.3.4.5", "1.-2", "-beta"} {
		_, err := ParseVersion(raw)
		assert.Error(t, err, raw)
	}
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, Compare(MustParseVersion("1.2.3"), MustParseVersion("1.2.3.0")))
	assert.Equal(t, -1, Compare(MustParseVersion("1.2.3"), MustParseVersion("1.2.3.1")))
	assert.Equal(t, 1, Compare(MustParseVersion("2.0"), MustParseVersion("1.9.9.9")))
	assert.Equal(t, -1, Compare(MustParseVersion("1.2.10"), MustParseVersion("1.3")))
	assert.True(t, MustParseVersion("1.0").Less(MustParseVersion("1.0.0.1")))
}

func TestIdentityEquality(t *testing.T) {
	a := MustParse("Newtonsoft.Json", "13.0.1")
	b := MustParse("Newtonsoft.Json", "13.0.1.0")
	c := MustParse("Newtonsoft.Json", "13.0.2")

	set := map[Identity]bool{a: true}
	assert.True(t, set[b], "same name and version must be one key")
	assert.False(t, set[c])
}

func TestFormatting(t *testing.T) {
	id := MustParse("Serilog", "2.10")
	assert.Equal(t, "2.10.0.0", id.Version.String())
	assert.Equal(t, "2.10.0", id.Version.Short())
	assert.Equal(t, "2.10.0.7", MustParseVersion("2.10.0.7").Short())
	assert.Equal(t, "Serilog.2.10.0", id.CacheKey())
	assert.Equal(t, "Serilog, Version=2.10.0.0", id.String())
}

func TestSortAndMinMax(t *testing.T) {
	vs := []Version{MustParseVersion("1.5"), MustParseVersion("1.2.3"), MustParseVersion("1.2")}
	lo, hi, ok := MinMax(vs)
	require.True(t, ok)
	assert.Equal(t, MustParseVersion("1.2"), lo)
	assert.Equal(t, MustParseVersion("1.5"), hi)

	SortVersions(vs)
	assert.Equal(t, []Version{MustParseVersion("1.2"), MustParseVersion("1.2.3"), MustParseVersion("1.5")}, vs)

	_, _, ok = MinMax(nil)
	assert.False(t, ok)

	ids := []Identity{MustParse("B", "1"), MustParse("A", "2"), MustParse("A", "1")}
	SortIdentities(ids)
	assert.Equal(t, []Identity{MustParse("A", "1"), MustParse("A", "2"), MustParse("B", "1")}, ids)
}
