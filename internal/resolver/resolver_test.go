package resolver

import (
	"context"
	"testing"

	"github.com/libretto-pm/libretto/internal/index"
	"github.com/libretto-pm/libretto/internal/libretr"
	"github.com/libretto-pm/libretto/internal/platform"
	"github.com/libretto-pm/libretto/internal/version"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	entries map[string]*index.PackageEntry
}

func (m *memSource) Fetch(ctx context.Context, name string) (*index.PackageEntry, error) {
	return m.entries[name], nil
}

// Providers mimics a provider-includes metadata lookup: it scans the known
// entries for any version that provides or replaces virtualName.
func (m *memSource) Providers(ctx context.Context, virtualName string) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for pkgName, entry := range m.entries {
		for _, pv := range entry.Versions {
			if _, ok := pv.Provides[virtualName]; ok {
				if !seen[pkgName] {
					seen[pkgName] = true
					names = append(names, pkgName)
				}
			}
			if _, ok := pv.Replaces[virtualName]; ok {
				if !seen[pkgName] {
					seen[pkgName] = true
					names = append(names, pkgName)
				}
			}
		}
	}
	return names, nil
}

func pv(t *testing.T, name, ver string, deps map[string]string) *index.PackageVersion {
	t.Helper()
	v, ok := version.Parse(ver)
	require.True(t, ok)
	return &index.PackageVersion{Name: name, Version: v, Dependencies: deps}
}

func newIndexFrom(t *testing.T, entries map[string][]*index.PackageVersion) *index.Index {
	t.Helper()
	built := make(map[string]*index.PackageEntry, len(entries))
	for name, versions := range entries {
		built[name] = index.NewPackageEntry(name, versions)
	}
	return index.New(&memSource{entries: built}, index.Config{})
}

func TestResolveSimpleChain(t *testing.T) {
	idx := newIndexFrom(t, map[string][]*index.PackageVersion{
		"a/a": {pv(t, "a/a", "1.0.0", map[string]string{"b/b": "^1.0"})},
		"b/b": {pv(t, "b/b", "1.2.0", nil), pv(t, "b/b", "2.0.0", nil)},
	})
	r := New(idx, nil)

	res, err := r.Resolve(context.Background(), Request{Require: map[string]string{"a/a": "^1.0"}})
	require.NoError(t, err)
	require.Contains(t, res.Packages, "a/a")
	require.Contains(t, res.Packages, "b/b")
	assert.Equal(t, "1.2.0", res.Packages["b/b"].Version.String())
	assert.Equal(t, []string{"b/b", "a/a"}, res.Order)
}

func TestResolveBacktracksOnConflictingConstraints(t *testing.T) {
	idx := newIndexFrom(t, map[string][]*index.PackageVersion{
		"a/a": {
			pv(t, "a/a", "2.0.0", map[string]string{"c/c": "^2.0"}),
			pv(t, "a/a", "1.0.0", map[string]string{"c/c": "^1.0"}),
		},
		"b/b": {pv(t, "b/b", "1.0.0", map[string]string{"c/c": "^1.0"})},
		"c/c": {pv(t, "c/c", "1.5.0", nil), pv(t, "c/c", "2.5.0", nil)},
	})
	r := New(idx, nil)

	res, err := r.Resolve(context.Background(), Request{Require: map[string]string{
		"a/a": "^1.0 || ^2.0",
		"b/b": "^1.0",
	}})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", res.Packages["a/a"].Version.String())
	assert.Equal(t, "1.5.0", res.Packages["c/c"].Version.String())
}

func TestResolveFailsWithNoCandidate(t *testing.T) {
	idx := newIndexFrom(t, map[string][]*index.PackageVersion{
		"a/a": {pv(t, "a/a", "1.0.0", nil)},
	})
	r := New(idx, nil)

	_, err := r.Resolve(context.Background(), Request{Require: map[string]string{"a/a": "^2.0"}})
	require.Error(t, err)
}

func TestResolveSatisfiesThroughProvides(t *testing.T) {
	idx := newIndexFrom(t, map[string][]*index.PackageVersion{
		"monolog/monolog": {
			{
				Name:     "monolog/monolog",
				Version:  mustV(t, "3.0.0"),
				Provides: map[string]string{"psr/log-implementation": "3.0.0"},
			},
		},
	})
	r := New(idx, nil)

	res, err := r.Resolve(context.Background(), Request{Require: map[string]string{
		"psr/log-implementation": "^3.0",
	}})
	require.NoError(t, err)
	assert.Contains(t, res.Packages, "monolog/monolog")
	assert.NotContains(t, res.Packages, "psr/log-implementation")
}

func TestResolvePlatformPackageSatisfied(t *testing.T) {
	idx := newIndexFrom(t, map[string][]*index.PackageVersion{
		"a/a": {pv(t, "a/a", "1.0.0", map[string]string{"php": "^8.1"})},
	})
	r := New(idx, nil)
	plat := platform.NewDescription(map[string]string{"php": "8.2.0"})

	res, err := r.Resolve(context.Background(), Request{
		Require:  map[string]string{"a/a": "^1.0"},
		Platform: plat,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Packages, "a/a")
	assert.NotContains(t, res.Packages, "php")
}

func TestResolvePlatformPackageUnsatisfied(t *testing.T) {
	idx := newIndexFrom(t, map[string][]*index.PackageVersion{
		"a/a": {pv(t, "a/a", "1.0.0", map[string]string{"php": "^8.1"})},
	})
	r := New(idx, nil)
	plat := platform.NewDescription(map[string]string{"php": "7.4.0"})

	_, err := r.Resolve(context.Background(), Request{
		Require:  map[string]string{"a/a": "^1.0"},
		Platform: plat,
	})
	require.Error(t, err)
}

func TestResolveDevRequirementsDoNotPerturbProduction(t *testing.T) {
	idx := newIndexFrom(t, map[string][]*index.PackageVersion{
		"a/a": {pv(t, "a/a", "1.0.0", nil)},
		"b/b": {pv(t, "b/b", "9.0.0", map[string]string{"a/a": "^1.0"})},
	})
	r := New(idx, nil)

	res, err := r.Resolve(context.Background(), Request{
		Require:    map[string]string{"a/a": "^1.0"},
		RequireDev: map[string]string{"b/b": "^9.0"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", res.Packages["a/a"].Version.String())
	assert.Equal(t, "9.0.0", res.Packages["b/b"].Version.String())
}

func TestResolvePreferLowestMode(t *testing.T) {
	idx := newIndexFrom(t, map[string][]*index.PackageVersion{
		"a/a": {pv(t, "a/a", "1.0.0", nil), pv(t, "a/a", "1.5.0", nil), pv(t, "a/a", "1.9.0", nil)},
	})
	r := New(idx, nil)

	res, err := r.Resolve(context.Background(), Request{
		Require: map[string]string{"a/a": "^1.0"},
		Mode:    PreferLowest,
	})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", res.Packages["a/a"].Version.String())
}

func TestResolveWarnsOnAbandonedPackage(t *testing.T) {
	idx := newIndexFrom(t, map[string][]*index.PackageVersion{
		"a/a": {{Name: "a/a", Version: mustV(t, "1.0.0"), Abandoned: "b/b"}},
	})
	log, hook := logrustest.NewNullLogger()
	r := New(idx, logrus.NewEntry(log))

	res, err := r.Resolve(context.Background(), Request{Require: map[string]string{"a/a": "^1.0"}})
	require.NoError(t, err)
	assert.Contains(t, res.Packages, "a/a")

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["package"] == "a/a" {
			found = true
			assert.Equal(t, "b/b", e.Data["replacement"])
		}
	}
	assert.True(t, found, "expected a warning log entry for the abandoned package")
}

func TestResolveRejectsProvideReplaceCycle(t *testing.T) {
	// a/a provides b/b, and b/b replaces a/a -- the worked example from the
	// provide/replace cycle rejection policy. Both packages are required
	// directly, so both entries get fetched and their provide/replace edges
	// recorded even though resolution itself never needs virtual-package
	// resolution to pick them.
	idx := newIndexFrom(t, map[string][]*index.PackageVersion{
		"a/a": {{Name: "a/a", Version: mustV(t, "1.0.0"), Provides: map[string]string{"b/b": "1.0.0"}}},
		"b/b": {{Name: "b/b", Version: mustV(t, "1.0.0"), Replaces: map[string]string{"a/a": "1.0.0"}}},
	})
	r := New(idx, nil)

	_, err := r.Resolve(context.Background(), Request{Require: map[string]string{"a/a": "^1.0", "b/b": "^1.0"}})
	require.Error(t, err)
	assert.True(t, libretr.HasCode(err, libretr.CodeResolution))
	assert.Contains(t, err.Error(), "cycle")
}

func mustV(t *testing.T, s string) *version.Version {
	t.Helper()
	v, ok := version.Parse(s)
	require.True(t, ok)
	return v
}
