package index

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/libretto-pm/libretto/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls   int64
	entries map[string]*PackageEntry
	err     error
}

func (f *fakeSource) Fetch(ctx context.Context, name string) (*PackageEntry, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[name], nil
}

func pv(name, ver string, deps map[string]string) *PackageVersion {
	v, ok := version.Parse(ver)
	if !ok {
		panic("bad version in test: " + ver)
	}
	return &PackageVersion{Name: name, Version: v, Dependencies: deps}
}

func TestGetFetchesThenCaches(t *testing.T) {
	src := &fakeSource{entries: map[string]*PackageEntry{
		"psr/log": NewPackageEntry("psr/log", []*PackageVersion{pv("psr/log", "3.0.0", nil)}),
	}}
	idx := New(src, Config{})

	e1, err := idx.Get(context.Background(), "psr/log")
	require.NoError(t, err)
	require.NotNil(t, e1)

	e2, err := idx.Get(context.Background(), "psr/log")
	require.NoError(t, err)
	assert.Same(t, e1, e2)
	assert.EqualValues(t, 1, atomic.LoadInt64(&src.calls))
}

func TestGetUnknownPackageIsCacheableNegative(t *testing.T) {
	src := &fakeSource{entries: map[string]*PackageEntry{}}
	idx := New(src, Config{})

	e, err := idx.Get(context.Background(), "vendor/ghost")
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = idx.Get(context.Background(), "vendor/ghost")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt64(&src.calls))
}

func TestGetMatchingVersionsFiltersAndCaches(t *testing.T) {
	src := &fakeSource{entries: map[string]*PackageEntry{
		"acme/widget": NewPackageEntry("acme/widget", []*PackageVersion{
			pv("acme/widget", "1.0.0", nil),
			pv("acme/widget", "1.5.0", nil),
			pv("acme/widget", "2.0.0", nil),
		}),
	}}
	idx := New(src, Config{})
	c, ok := version.ParseConstraint("^1.0")
	require.True(t, ok)

	matches, err := idx.GetMatchingVersions(context.Background(), "acme/widget", c)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "1.5.0", matches[0].String())
	assert.Equal(t, "1.0.0", matches[1].String())

	matches2, err := idx.GetMatchingVersions(context.Background(), "acme/widget", c)
	require.NoError(t, err)
	assert.Len(t, matches2, 2)
}

func TestProvidesAndReplacesTracked(t *testing.T) {
	entry := NewPackageEntry("acme/impl", []*PackageVersion{
		{
			Name:     "acme/impl",
			Version:  mustParse(t, "1.0.0"),
			Provides: map[string]string{"psr/log-implementation": "1.0.0"},
			Replaces: map[string]string{"acme/legacy-impl": "*"},
		},
	})
	src := &fakeSource{entries: map[string]*PackageEntry{"acme/impl": entry}}
	idx := New(src, Config{})

	_, err := idx.Get(context.Background(), "acme/impl")
	require.NoError(t, err)

	providers := idx.GetProviders("psr/log-implementation")
	require.Len(t, providers, 1)
	assert.Equal(t, "acme/impl", providers[0].Package)

	replacers := idx.GetReplacers("acme/legacy-impl")
	require.Len(t, replacers, 1)
	assert.Equal(t, "acme/impl", replacers[0].Package)
}

func TestPrefetchFetchesAllOnce(t *testing.T) {
	src := &fakeSource{entries: map[string]*PackageEntry{
		"a/a": NewPackageEntry("a/a", []*PackageVersion{pv("a/a", "1.0.0", nil)}),
		"b/b": NewPackageEntry("b/b", []*PackageVersion{pv("b/b", "1.0.0", nil)}),
	}}
	idx := New(src, Config{})

	err := idx.Prefetch(context.Background(), []string{"a/a", "b/b", "a/a"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&src.calls))

	_, err = idx.Get(context.Background(), "a/a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&src.calls))
}

func TestStatsCountHitsAndMisses(t *testing.T) {
	src := &fakeSource{entries: map[string]*PackageEntry{
		"a/a": NewPackageEntry("a/a", []*PackageVersion{pv("a/a", "1.0.0", nil)}),
	}}
	idx := New(src, Config{})

	_, _ = idx.Get(context.Background(), "a/a")
	_, _ = idx.Get(context.Background(), "a/a")

	stats := idx.Stats()
	assert.EqualValues(t, 1, stats.Misses)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Fetches)
}

func mustParse(t *testing.T, s string) *version.Version {
	t.Helper()
	v, ok := version.Parse(s)
	require.True(t, ok)
	return v
}
