package lockfile

import (
	"sort"

	"github.com/libretto-pm/libretto/internal/index"
	"github.com/libretto-pm/libretto/internal/resolver"
)

const defaultPluginAPIVersion = "2.6.0"

// GeneratorInput carries everything BuildLock needs beyond the resolved
// package set: the manifest's own requirements (for the content hash) and
// its stability/platform configuration (echoed into the lock verbatim).
type GeneratorInput struct {
	Require          map[string]string
	RequireDev       map[string]string
	MinimumStability string
	PreferStable     bool
	PreferLowest     bool
	Platform         map[string]string
	PlatformDev      map[string]string
	PluginAPIVersion string

	// PlatformOverrides feeds only the content hash, per spec §4.6; it is
	// not echoed into the lock document itself.
	PlatformOverrides map[string]string
}

// BuildLock converts a resolved production+dev set into a Lock, computing
// its content hash from in, and sorting package arrays by name for
// deterministic output regardless of resolution order.
func BuildLock(prod, dev *resolver.Resolution, in GeneratorInput) *Lock {
	pluginAPIVersion := in.PluginAPIVersion
	if pluginAPIVersion == "" {
		pluginAPIVersion = defaultPluginAPIVersion
	}

	devNames := map[string]bool{}
	if dev != nil {
		for name := range dev.Packages {
			if prod == nil || prod.Packages[name] == nil {
				devNames[name] = true
			}
		}
	}

	l := &Lock{
		Readme:           append([]string(nil), defaultReadme...),
		ContentHash:      ContentHash(in),
		MinimumStability: in.MinimumStability,
		PreferStable:     in.PreferStable,
		PreferLowest:     in.PreferLowest,
		Platform:         in.Platform,
		PlatformDev:      in.PlatformDev,
		PluginAPIVersion: pluginAPIVersion,
	}

	if prod != nil {
		for _, pv := range prod.Packages {
			l.Packages = append(l.Packages, toLockedPackage(pv))
		}
	}
	if dev != nil {
		for name := range devNames {
			l.PackagesDev = append(l.PackagesDev, toLockedPackage(dev.Packages[name]))
		}
	}

	sort.Slice(l.Packages, func(i, j int) bool { return l.Packages[i].Name < l.Packages[j].Name })
	sort.Slice(l.PackagesDev, func(i, j int) bool { return l.PackagesDev[i].Name < l.PackagesDev[j].Name })
	return l
}

func toLockedPackage(pv *index.PackageVersion) Package {
	p := Package{
		Name:       pv.Name,
		Version:    pv.Version.String(),
		Require:    pv.Dependencies,
		RequireDev: pv.DevDependencies,
		Type:       pv.Type,
	}
	if pv.Source.URL != "" {
		p.Source = &Source{Type: pv.Source.Type, URL: pv.Source.URL, Reference: pv.Source.Reference}
	}
	if pv.Dist.URL != "" {
		p.Dist = &Dist{Type: pv.Dist.Type, URL: pv.Dist.URL, Shasum: pv.Dist.Shasum}
	}
	return p
}
