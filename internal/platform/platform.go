// Package platform describes the "platform" packages spec §4.3 carves out
// of the resolver's normal package-index-driven search: php, hhvm, ext-*,
// lib-*, and composer-* are resolved against a supplied description of the
// running environment rather than fetched from any remote index.
package platform

import (
	"strings"

	"github.com/libretto-pm/libretto/internal/version"
)

// IsPlatformPackage reports whether name is a platform package per §4.3.5:
// "php", "hhvm", anything prefixed "ext-"/"lib-"/"composer-".
func IsPlatformPackage(name string) bool {
	switch {
	case name == "php", name == "hhvm":
		return true
	case strings.HasPrefix(name, "ext-"),
		strings.HasPrefix(name, "lib-"),
		strings.HasPrefix(name, "composer-"):
		return true
	default:
		return false
	}
}

// Description is a fixed view of the environment's platform packages: the
// PHP runtime version, loaded extensions, and linked libraries, each with
// its own version. Composer's `config.platform` manifest overrides are
// merged in on top (see Override).
type Description struct {
	versions map[string]*version.Version
	ignored  map[string]bool // names skipped entirely, as if always satisfied
}

// NewDescription builds a Description from a name->version-string map, as
// produced by probing the running PHP binary (out of scope here) or
// supplied verbatim in tests/config.
func NewDescription(raw map[string]string) *Description {
	d := &Description{versions: make(map[string]*version.Version), ignored: make(map[string]bool)}
	for name, vs := range raw {
		if v, ok := version.Parse(vs); ok {
			d.versions[strings.ToLower(name)] = v
		}
	}
	return d
}

// Override applies composer.json's `config.platform` map, which lets a
// project pin a platform package's reported version (or remove it) without
// needing the real runtime present. Per Composer semantics, an override
// with an empty-string value removes that platform package from the
// description rather than pinning it to an empty version.
func (d *Description) Override(overrides map[string]string) {
	for name, vs := range overrides {
		key := strings.ToLower(name)
		if vs == "" {
			delete(d.versions, key)
			continue
		}
		if v, ok := version.Parse(vs); ok {
			d.versions[key] = v
		}
	}
}

// Ignore marks name (or, if it ends in "*", every platform package whose
// name has that prefix) as always satisfied, mirroring Composer's
// --ignore-platform-req / --ignore-platform-reqs.
func (d *Description) Ignore(pattern string) {
	d.ignored[strings.ToLower(pattern)] = true
}

// Version returns the version Libretto should treat name as providing, and
// whether the platform is able to answer for name at all.
func (d *Description) Version(name string) (*version.Version, bool) {
	v, ok := d.versions[strings.ToLower(name)]
	return v, ok
}

// Satisfies reports whether the platform satisfies constraint for name. An
// ignored platform package (exact name or "prefix*" pattern) is always
// satisfied; a platform package with no reported version is never
// satisfied.
func (d *Description) Satisfies(name string, constraint *version.Constraint) bool {
	key := strings.ToLower(name)
	if d.ignored[key] {
		return true
	}
	for pattern := range d.ignored {
		if strings.HasSuffix(pattern, "*") && strings.HasPrefix(key, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	v, ok := d.versions[key]
	if !ok {
		return false
	}
	return constraint.Matches(v)
}
