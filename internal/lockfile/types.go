// Package lockfile implements the Lockfile Writer: canonical serialisation
// of a resolved dependency set to composer.lock, with crash-safe atomic
// writes, multi-file transactions, startup recovery, and validation, per
// spec §4.6.
package lockfile

// Source describes a package's VCS origin.
type Source struct {
	Type      string
	URL       string
	Reference string
}

// Dist describes where a package's distributable archive was downloaded
// from.
type Dist struct {
	Type      string
	URL       string
	Reference string
	Shasum    string
}

// Author is one entry of a package's `authors` field.
type Author struct {
	Name     string
	Email    string
	Homepage string
	Role     string
}

// Autoload mirrors the subset of composer.json's autoload block that gets
// echoed back into the lock file.
type Autoload struct {
	PSR4     map[string][]string
	PSR0     map[string][]string
	Classmap []string
	Files    []string
}

func (a Autoload) isEmpty() bool {
	return len(a.PSR4) == 0 && len(a.PSR0) == 0 && len(a.Classmap) == 0 && len(a.Files) == 0
}

// Package is one locked package entry.
type Package struct {
	Name            string
	Version         string
	Source          *Source
	Dist            *Dist
	Require         map[string]string
	RequireDev      map[string]string
	Type            string
	Autoload        Autoload
	NotificationURL string
	License         []string
	Authors         []Author
	Description     string
	Homepage        string
	Keywords        []string
	Time            string
	Abandoned       bool
}

// Alias is one `aliases` entry: a package pinned to a version string is
// additionally exposed under an alias version (Composer's `dev-main as
// 1.0.x-dev`-style branch aliasing).
type Alias struct {
	Package         string
	Version         string
	Alias           string
	AliasNormalized string
}

// Lock is a fully populated composer.lock document, ready for canonical
// serialisation.
type Lock struct {
	Readme           []string
	ContentHash      string
	Packages         []Package
	PackagesDev      []Package
	Aliases          []Alias
	MinimumStability string
	StabilityFlags   map[string]int
	PreferStable     bool
	PreferLowest     bool
	Platform         map[string]string
	PlatformDev      map[string]string
	PluginAPIVersion string
}

// defaultReadme is the boilerplate Composer itself emits into every lock
// file's `_readme` array.
var defaultReadme = []string{
	"This file locks the dependencies of your project to a known state",
	"Read more about it at https://getcomposer.org/doc/01-basic-usage.md#installing-dependencies",
	"This file is @generated automatically",
}
