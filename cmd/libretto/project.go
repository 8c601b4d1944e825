package main

import (
	"os"
	"path/filepath"

	"github.com/libretto-pm/libretto/internal/manifest"
	"github.com/libretto-pm/libretto/internal/version"
)

const (
	manifestFilename = "composer.json"
	lockFilename     = "composer.lock"
	vendorDirname    = "vendor"
	scanCacheName    = ".libretto-autoload-cache"
)

func manifestPath() string { return filepath.Join(workingDir, manifestFilename) }
func lockPath() string     { return filepath.Join(workingDir, lockFilename) }
func vendorPath() string   { return filepath.Join(workingDir, vendorDirname) }

func loadManifest() (*manifest.Manifest, error) {
	data, err := os.ReadFile(manifestPath())
	if err != nil {
		return nil, err
	}
	return manifest.Parse(manifestPath(), data)
}

// stabilityFromString maps composer.json's minimum-stability value to the
// resolver's Stability ladder, defaulting to stable for an empty or
// unrecognized value the same way Composer treats a missing field.
func stabilityFromString(s string) version.Stability {
	switch s {
	case "dev":
		return version.StabilityDev
	case "alpha":
		return version.StabilityAlpha
	case "beta":
		return version.StabilityBeta
	case "RC", "rc":
		return version.StabilityRC
	default:
		return version.StabilityStable
	}
}
