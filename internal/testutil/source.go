package testutil

import (
	"context"

	"github.com/libretto-pm/libretto/internal/index"
	"github.com/libretto-pm/libretto/internal/version"
)

// MemorySource is an in-memory index.PackageSource/index.ProviderSource,
// for resolver and index tests that need a deterministic package universe
// without a live HTTP server.
type MemorySource struct {
	entries   map[string]*index.PackageEntry
	providers map[string][]string
}

// NewMemorySource returns an empty MemorySource; build it up with AddVersion
// before handing it to index.New.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		entries:   map[string]*index.PackageEntry{},
		providers: map[string][]string{},
	}
}

// AddVersion registers one version of name, with require as its
// dependency map. Versions accumulate per name across calls and are
// re-sorted descending on each call, mirroring index.NewPackageEntry.
func (s *MemorySource) AddVersion(name, ver string, require map[string]string) *MemorySource {
	parsed, ok := version.Parse(ver)
	if !ok {
		panic("testutil: invalid fixture version " + ver)
	}

	existing := s.entries[name]
	var versions []*index.PackageVersion
	if existing != nil {
		versions = existing.Versions
	}
	versions = append(versions, &index.PackageVersion{
		Name:         name,
		Version:      parsed,
		Dependencies: require,
	})
	s.entries[name] = index.NewPackageEntry(name, versions)
	return s
}

// AddProvider registers realName as a provider of the virtual package
// virtualName, for ProviderSource.Providers lookups.
func (s *MemorySource) AddProvider(virtualName, realName string) *MemorySource {
	s.providers[virtualName] = append(s.providers[virtualName], realName)
	return s
}

// Fetch implements index.PackageSource.
func (s *MemorySource) Fetch(_ context.Context, name string) (*index.PackageEntry, error) {
	return s.entries[name], nil
}

// Providers implements index.ProviderSource.
func (s *MemorySource) Providers(_ context.Context, virtualName string) ([]string, error) {
	return s.providers[virtualName], nil
}
