// Package autoload implements the Autoloader Generator (spec §4.7): it
// turns each installed package's PSR-4/PSR-0/classmap/files autoload
// descriptors into Composer-compatible files under vendor/, optionally
// scanning PHP source with github.com/z7zmey/php-parser to build a
// fully-optimized classmap.
package autoload

import (
	"sort"

	"github.com/libretto-pm/libretto/internal/manifest"
)

// Level controls how much filesystem scanning the generator performs.
type Level int

const (
	// None emits only the PSR-4/PSR-0 prefix tables; class resolution
	// happens at runtime by probing candidate file paths.
	None Level = iota
	// Optimized additionally scans every PSR-4/PSR-0 directory and every
	// declared classmap path, building one classmap entry per discovered
	// class so runtime resolution collapses to a map lookup.
	Optimized
	// Authoritative is Optimized plus a flag telling the runtime loader to
	// never fall back to filesystem scanning for an unmapped class.
	Authoritative
)

// PackageAutoload is one installed package's autoload descriptor, keyed to
// its install path so relative paths in the emitted tables can be resolved
// against vendor root.
type PackageAutoload struct {
	Name        string // "vendor/package", or "" for the root package
	InstallPath string // absolute path to the package's install directory
	Autoload    manifest.Autoload
}

// Input is everything Generate needs: the vendor directory to write into,
// the full set of installed packages' autoload descriptors (root package
// included, with InstallPath set to the project root), and the desired
// optimization level.
type Input struct {
	VendorDir string
	Packages  []PackageAutoload
	Level     Level
}

// mergedTables is the generator's intermediate, fully-resolved
// representation: every package's PSR-4/PSR-0/files/classmap entries
// combined and sorted, ready for emission.
type mergedTables struct {
	psr4      map[string][]string // namespace prefix -> dirs, relative to vendor root
	psr0      map[string][]string
	files     []fileEntry
	classmap  []classmapEntry // only populated at Optimized/Authoritative
}

type fileEntry struct {
	id   string // 32 hex chars, BLAKE3(relative_path)[0..16]
	path string // forward-slash, "/"-relative to vendor root
}

type classmapEntry struct {
	class string
	path  string // forward-slash, "/"-relative to vendor root
}

func newMergedTables() *mergedTables {
	return &mergedTables{psr4: map[string][]string{}, psr0: map[string][]string{}}
}

func (m *mergedTables) sortedNamespaces(table map[string][]string) []string {
	names := make([]string, 0, len(table))
	for ns := range table {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

func (m *mergedTables) sortClassmap() {
	sort.Slice(m.classmap, func(i, j int) bool { return m.classmap[i].class < m.classmap[j].class })
}

func (m *mergedTables) sortFiles() {
	sort.Slice(m.files, func(i, j int) bool { return m.files[i].path < m.files[j].path })
}
