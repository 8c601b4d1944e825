package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/libretto-pm/libretto/internal/autoload"
	"github.com/libretto-pm/libretto/internal/lockfile"
	"github.com/libretto-pm/libretto/internal/manifest"
)

// collectAutoloadInput builds the Autoloader Generator's Input from the
// root package's own manifest plus every locked package that has already
// been installed under vendor/<name>/composer.json. A resolved dependency
// that hasn't been unpacked onto disk yet (this tool resolves and locks;
// it does not fetch and extract dist archives, per the Non-goal on
// mutating source trees after extraction) is silently skipped rather than
// failing the generator, the same tolerant-directory-scan behavior
// Composer itself shows for a stale or partial vendor directory.
func collectAutoloadInput(m *manifest.Manifest, lock *lockfile.Lock, level autoload.Level) autoload.Input {
	in := autoload.Input{
		VendorDir: vendorPath(),
		Level:     level,
		Packages: []autoload.PackageAutoload{
			{Name: "", InstallPath: workingDir, Autoload: m.Autoload},
		},
	}

	for _, pkg := range lock.Packages {
		if pa, ok := packageAutoloadFromVendor(pkg.Name); ok {
			in.Packages = append(in.Packages, pa)
		}
	}
	for _, pkg := range lock.PackagesDev {
		if pa, ok := packageAutoloadFromVendor(pkg.Name); ok {
			in.Packages = append(in.Packages, pa)
		}
	}

	return in
}

func packageAutoloadFromVendor(name string) (autoload.PackageAutoload, bool) {
	installPath := filepath.Join(vendorPath(), name)
	data, err := os.ReadFile(filepath.Join(installPath, manifestFilename))
	if err != nil {
		return autoload.PackageAutoload{}, false
	}
	pm, err := manifest.Parse(filepath.Join(installPath, manifestFilename), data)
	if err != nil {
		return autoload.PackageAutoload{}, false
	}
	return autoload.PackageAutoload{Name: name, InstallPath: installPath, Autoload: pm.Autoload}, true
}

func generateAutoload(m *manifest.Manifest, lock *lockfile.Lock, level autoload.Level, log *logrus.Entry) error {
	in := collectAutoloadInput(m, lock, level)
	return autoload.Generate(in, filepath.Join(vendorPath(), scanCacheName), log)
}
