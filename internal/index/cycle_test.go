package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCycleNoneWhenGraphIsAcyclic(t *testing.T) {
	a := NewPackageEntry("acme/impl", []*PackageVersion{
		{Name: "acme/impl", Version: mustParse(t, "1.0.0"),
			Provides: map[string]string{"psr/log-implementation": "1.0.0"}},
	})
	src := &fakeSource{entries: map[string]*PackageEntry{"acme/impl": a}}
	idx := New(src, Config{})

	_, err := idx.Get(context.Background(), "acme/impl")
	require.NoError(t, err)

	_, found := idx.DetectCycle()
	assert.False(t, found)
}

func TestDetectCycleFindsTwoPackageCycle(t *testing.T) {
	a := NewPackageEntry("acme/a", []*PackageVersion{
		{Name: "acme/a", Version: mustParse(t, "1.0.0"),
			Provides: map[string]string{"acme/b": "1.0.0"}},
	})
	b := NewPackageEntry("acme/b", []*PackageVersion{
		{Name: "acme/b", Version: mustParse(t, "1.0.0"),
			Replaces: map[string]string{"acme/a": "1.0.0"}},
	})
	src := &fakeSource{entries: map[string]*PackageEntry{"acme/a": a, "acme/b": b}}
	idx := New(src, Config{})

	_, err := idx.Get(context.Background(), "acme/a")
	require.NoError(t, err)
	_, err = idx.Get(context.Background(), "acme/b")
	require.NoError(t, err)

	cycle, found := idx.DetectCycle()
	require.True(t, found)
	assert.Contains(t, cycle, "acme/a")
	assert.Contains(t, cycle, "acme/b")
}
