package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) *Version {
	t.Helper()
	v, ok := Parse(s)
	require.True(t, ok, "expected %q to parse", s)
	return v
}

func mustParseConstraint(t *testing.T, s string) *Constraint {
	t.Helper()
	c, ok := ParseConstraint(s)
	require.True(t, ok, "expected constraint %q to parse", s)
	return c
}

func TestConstraintMatches(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		version    string
		want       bool
	}{
		{"wildcard matches anything", "*", "1.2.3", true},
		{"exact match", "1.2.3", "1.2.3", true},
		{"exact mismatch", "1.2.3", "1.2.4", false},
		{"gte in range", ">=1.0.0", "1.5.0", true},
		{"gte below range", ">=1.0.0", "0.9.0", false},
		{"lt excludes boundary", "<2.0.0", "2.0.0", false},
		{"lte includes boundary", "<=2.0.0", "2.0.0", true},
		{"not-equal excludes exact", "!=1.0.0", "1.0.0", false},
		{"not-equal allows others", "!=1.0.0", "1.0.1", true},
		{"caret major", "^1.2.3", "1.9.0", true},
		{"caret major excludes next major", "^1.2.3", "2.0.0", false},
		{"caret major excludes below", "^1.2.3", "1.2.2", false},
		{"caret zero minor", "^0.3.0", "0.3.9", true},
		{"caret zero minor excludes next minor", "^0.3.0", "0.4.0", false},
		{"tilde patch", "~1.2.3", "1.2.9", true},
		{"tilde patch excludes next minor", "~1.2.3", "1.3.0", false},
		{"tilde minor", "~1.2", "1.9.9", true},
		{"tilde minor excludes next major", "~1.2", "2.0.0", false},
		{"wildcard minor", "1.2.*", "1.2.7", true},
		{"wildcard minor excludes next minor", "1.2.*", "1.3.0", false},
		{"hyphen range inside", "1.0.0 - 2.0.0", "1.5.0", true},
		{"hyphen range boundary inclusive", "1.0.0 - 2.0.0", "2.0.0", true},
		{"or across ranges", "^1.0 || ^2.0", "2.3.0", true},
		{"or matches top of first range", "^1.0 || ^2.0", "1.9.9", true},
		{"and space separated", ">=1.0.0 <2.0.0", "1.5.0", true},
		{"and space separated excluded", ">=1.0.0 <2.0.0", "2.0.0", false},
		{"and comma separated", ">=1.0.0,<2.0.0", "1.5.0", true},
		{"dev branch literal matches", "dev-main", "dev-main", true},
		{"dev branch literal rejects other branch", "dev-main", "dev-develop", false},
		{"numeric constraint rejects dev version", "^1.0", "dev-main", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetCaches()
			c := mustParseConstraint(t, tt.constraint)
			v := mustParse(t, tt.version)
			assert.Equal(t, tt.want, c.Matches(v), "constraint=%s version=%s", tt.constraint, tt.version)
		})
	}
}

func TestConstraintInvalidInput(t *testing.T) {
	_, ok := ParseConstraint("")
	assert.False(t, ok)
	_, ok = ParseConstraint("   ")
	assert.False(t, ok)
}

// TestIntersectionComplementIsEmpty is the algebraic invariant from spec §8:
// for all c, c.Intersection(c.Complement()).IsEmpty().
func TestIntersectionComplementIsEmpty(t *testing.T) {
	constraints := []string{"^1.2.3", "~1.2", "1.2.*", ">=1.0.0 <2.0.0", "1.0.0 - 2.0.0", "*", "1.2.3"}
	for _, s := range constraints {
		t.Run(s, func(t *testing.T) {
			ResetCaches()
			c := mustParseConstraint(t, s)
			assert.True(t, c.Intersection(c.Complement()).IsEmpty(), "constraint=%s", s)
		})
	}
}

// TestUnionMatchesEitherOperand is the algebraic invariant from spec §8:
// c.Union(c2).Matches(v) == c.Matches(v) || c2.Matches(v).
func TestUnionMatchesEitherOperand(t *testing.T) {
	pairs := [][2]string{
		{"^1.0", "^2.0"},
		{"~1.2", "1.5.0"},
		{"<1.0.0", ">=2.0.0"},
	}
	probes := []string{"0.5.0", "1.0.0", "1.5.0", "1.9.9", "2.0.0", "2.5.0", "3.0.0"}

	for _, pair := range pairs {
		t.Run(pair[0]+" || "+pair[1], func(t *testing.T) {
			ResetCaches()
			c1 := mustParseConstraint(t, pair[0])
			c2 := mustParseConstraint(t, pair[1])
			union := c1.Union(c2)
			for _, p := range probes {
				v := mustParse(t, p)
				want := c1.Matches(v) || c2.Matches(v)
				assert.Equal(t, want, union.Matches(v), "probe=%s", p)
			}
		})
	}
}

func TestIntersectionMatchesBothOperands(t *testing.T) {
	ResetCaches()
	c1 := mustParseConstraint(t, ">=1.0.0")
	c2 := mustParseConstraint(t, "<2.0.0")
	inter := c1.Intersection(c2)

	probes := []string{"0.5.0", "1.0.0", "1.5.0", "2.0.0", "2.5.0"}
	for _, p := range probes {
		v := mustParse(t, p)
		want := c1.Matches(v) && c2.Matches(v)
		assert.Equal(t, want, inter.Matches(v), "probe=%s", p)
	}
}

func TestConstraintParseIsMemoized(t *testing.T) {
	ResetCaches()
	c1, ok1 := ParseConstraint("^1.2.3")
	require.True(t, ok1)
	c2, ok2 := ParseConstraint("^1.2.3")
	require.True(t, ok2)
	assert.True(t, c1 == c2)
}

func TestStabilityFlag(t *testing.T) {
	ResetCaches()
	c := mustParseConstraint(t, "1.0.0@beta")
	betaVersion := mustParse(t, "1.0.0-beta")
	assert.True(t, c.Matches(betaVersion))
}
