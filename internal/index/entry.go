package index

import (
	"sort"
	"sync"

	"github.com/libretto-pm/libretto/internal/version"
)

// Dist describes where to download a package's distributable archive from.
type Dist struct {
	Type   string
	URL    string
	Shasum string
}

// Source describes a package's VCS origin (out of scope for cloning here;
// carried through so the lockfile writer can emit it verbatim).
type Source struct {
	Type      string
	URL       string
	Reference string
}

// PackageVersion is one published version of one package, with everything
// the resolver and lockfile writer need.
type PackageVersion struct {
	Name            string
	Version         *version.Version
	Dependencies    map[string]string
	DevDependencies map[string]string
	Replaces        map[string]string
	Provides        map[string]string
	Conflicts       map[string]string
	Dist            Dist
	Source          Source
	Type            string

	// Abandoned is the replacement package name if the metadata's
	// "abandoned" key names one, or "true" if it's abandoned with no
	// named replacement, or "" if the package isn't marked abandoned.
	Abandoned string
}

// internTable deduplicates package-name strings so that every PackageEntry
// sharing the same name also shares the same backing string, per spec §3's
// "interned as a shared immutable string for map keys".
var internTable sync.Map // string -> string

func intern(name string) string {
	if v, ok := internTable.Load(name); ok {
		return v.(string)
	}
	actual, _ := internTable.LoadOrStore(name, name)
	return actual.(string)
}

// PackageEntry is every known version of one package, sorted descending.
// It is shared by every consumer that looked it up through the same Index
// via a plain Go pointer — Go's garbage collector makes that pointer as
// cheap to share as the reference-counted pointer spec §3 describes, with
// no atomic refcount traffic on the read path.
type PackageEntry struct {
	Name     string
	Versions []*PackageVersion // sorted descending by Version
}

// NewPackageEntry builds a PackageEntry, sorting versions descending.
func NewPackageEntry(name string, versions []*PackageVersion) *PackageEntry {
	name = intern(name)
	sorted := append([]*PackageVersion(nil), versions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version.Compare(sorted[j].Version) > 0
	})
	return &PackageEntry{Name: name, Versions: sorted}
}

// MatchingIndices returns the indices (into Versions) of every version that
// satisfies c, preserving the descending sort order.
func (e *PackageEntry) MatchingIndices(c *version.Constraint) []int {
	var out []int
	for i, pv := range e.Versions {
		if c.Matches(pv.Version) {
			out = append(out, i)
		}
	}
	return out
}
