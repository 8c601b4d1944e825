package autoload

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// buildClassmap walks every directory named by a PSR-4/PSR-0 prefix and
// every explicit classmap entry across all packages, skipping files that
// match an exclude-from-classmap pattern, parsing each remaining .php file
// and recording one classmap
// entry per class/interface/trait discovered. Per spec §4.7 this is
// "embarrassingly parallel per file": each file is scanned independently
// and the cache consulted per file, with an errgroup fanning the work out
// the same way the metadata fetcher fans out fetch_many.
func buildClassmap(in Input, cache *scanCache, log *logrus.Entry) ([]classmapEntry, error) {
	files, err := collectPHPFiles(in)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		entries []classmapEntry
	)

	g := new(errgroup.Group)
	for _, f := range files {
		file := f
		g.Go(func() error {
			classes, _, err := scanWithCache(file.absPath, file.relPath, cache)
			if err != nil {
				logScanWarning(log, file.absPath, err)
				return nil
			}
			if len(classes) == 0 {
				return nil
			}
			mu.Lock()
			for _, class := range classes {
				entries = append(entries, classmapEntry{class: class, path: file.vendorRelPath})
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return entries, nil
}

// scanWithCache consults cache before invoking scanFile: a hit on an
// unchanged mtime short-circuits parsing entirely. A cache miss or a
// changed mtime always re-parses and refreshes the entry, since the
// fingerprint only matters for deciding whether *other* incremental
// machinery (not built here) needs to react to the change.
func scanWithCache(absPath, relPath string, cache *scanCache) (classes []string, changed bool, err error) {
	info, statErr := os.Stat(absPath)
	if statErr != nil {
		return nil, false, statErr
	}

	if entry, ok := cache.unchanged(relPath, info.ModTime()); ok {
		return entry.Classes, false, nil
	}

	result, err := scanFile(absPath)
	if err != nil {
		return nil, false, err
	}
	cache.put(relPath, info.ModTime(), result.fingerprint, result.classes)
	return result.classes, true, nil
}

type phpFile struct {
	absPath       string
	relPath       string // cache key: vendor-relative, forward-slash
	vendorRelPath string // emitted path: same as relPath, for now identical
}

// collectPHPFiles enumerates every candidate PHP source file across all
// packages' PSR-4, PSR-0, and explicit classmap roots, skipping anything
// under an exclude-from-classmap pattern. Non-php files and directories
// that don't exist (an optional autoload root that was never created) are
// silently skipped, matching Composer's tolerant directory-scan behavior.
func collectPHPFiles(in Input) ([]phpFile, error) {
	var out []phpFile
	seen := map[string]bool{}

	addRoot := func(pkg PackageAutoload, root string, excludes []string) error {
		absRoot := filepath.Join(pkg.InstallPath, root)
		info, err := os.Stat(absRoot)
		if err != nil {
			return nil
		}

		walk := func(path string) error {
			if strings.HasSuffix(path, ".php") && !matchesAnyExclude(path, pkg.InstallPath, excludes) {
				rel := relativeToVendor(in.VendorDir, path)
				if !seen[rel] {
					seen[rel] = true
					out = append(out, phpFile{absPath: path, relPath: rel, vendorRelPath: rel})
				}
			}
			return nil
		}

		if !info.IsDir() {
			return walk(absRoot)
		}
		return filepath.Walk(absRoot, func(path string, fi os.FileInfo, err error) error {
			if err != nil || fi.IsDir() {
				return nil
			}
			return walk(path)
		})
	}

	for _, pkg := range in.Packages {
		for _, dirs := range pkg.Autoload.PSR4 {
			for _, dir := range dirs {
				if err := addRoot(pkg, dir, pkg.Autoload.ExcludeFromClassmap); err != nil {
					return nil, err
				}
			}
		}
		for _, dirs := range pkg.Autoload.PSR0 {
			for _, dir := range dirs {
				if err := addRoot(pkg, dir, pkg.Autoload.ExcludeFromClassmap); err != nil {
					return nil, err
				}
			}
		}
		for _, dir := range pkg.Autoload.Classmap {
			if err := addRoot(pkg, dir, pkg.Autoload.ExcludeFromClassmap); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// matchesAnyExclude reports whether path (relative to installPath) matches
// one of the package's exclude-from-classmap glob patterns.
func matchesAnyExclude(path, installPath string, excludes []string) bool {
	rel, err := filepath.Rel(installPath, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range excludes {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if strings.Contains(rel, strings.Trim(pattern, "/*")) && strings.Trim(pattern, "/*") != "" {
			return true
		}
	}
	return false
}
