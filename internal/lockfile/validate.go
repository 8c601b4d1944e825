package lockfile

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is a structural defect that makes a lock unusable.
type ValidationError struct {
	Kind       string // duplicate_package, missing_field, invalid_package, circular_dependency, missing_dependency, content_hash_mismatch
	Package    string
	Dependency string
	Reason     string
	Cycle      []string
	Expected   string
	Actual     string
}

func (e ValidationError) Error() string {
	switch e.Kind {
	case "missing_field":
		return fmt.Sprintf("missing required field: %s", e.Reason)
	case "duplicate_package":
		return fmt.Sprintf("duplicate package: %s", e.Package)
	case "invalid_package":
		return fmt.Sprintf("invalid package %q: %s", e.Package, e.Reason)
	case "circular_dependency":
		return fmt.Sprintf("circular dependency: %s", strings.Join(e.Cycle, " -> "))
	case "content_hash_mismatch":
		return fmt.Sprintf("content hash mismatch: expected %s, got %s", e.Expected, e.Actual)
	case "missing_dependency":
		return fmt.Sprintf("package %q requires %q which is not in the lock", e.Package, e.Dependency)
	default:
		return fmt.Sprintf("%s: %s/%s", e.Kind, e.Package, e.Reason)
	}
}

// ValidationWarning is a non-fatal observation about a lock's contents.
type ValidationWarning struct {
	Kind    string // unusual_version, missing_install_source, deprecated_package, missing_optional_field, out_of_date, manual_edit
	Package string
	Field   string
	Version string
	Message string
}

func (w ValidationWarning) String() string {
	switch w.Kind {
	case "unusual_version":
		return fmt.Sprintf("package %q has unusual version format: %s", w.Package, w.Version)
	case "missing_install_source":
		return fmt.Sprintf("package %q has no source or dist", w.Package)
	case "deprecated_package":
		return fmt.Sprintf("package %q is deprecated", w.Package)
	case "missing_optional_field":
		return fmt.Sprintf("package %q missing optional field: %s", w.Package, w.Field)
	default:
		return w.Message
	}
}

// ValidationResult accumulates errors and warnings produced by Validator.Validate.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

func validResult() ValidationResult { return ValidationResult{Valid: true} }

func (r *ValidationResult) addError(e ValidationError) {
	r.Valid = false
	r.Errors = append(r.Errors, e)
}

func (r *ValidationResult) addWarning(w ValidationWarning) {
	r.Warnings = append(r.Warnings, w)
}

// HasIssues reports whether the result carries any errors or warnings.
func (r ValidationResult) HasIssues() bool {
	return len(r.Errors) > 0 || len(r.Warnings) > 0
}

// Validator checks a Lock's internal consistency: duplicate names,
// malformed package entries, unresolved dependencies, and require cycles.
type Validator struct {
	CheckCircular       bool
	CheckDependencies   bool
	WarnMissingOptional bool
	CheckVersions       bool
}

// NewValidator returns the default validator: circular and dependency
// checks on, optional-field warnings off.
func NewValidator() Validator {
	return Validator{CheckCircular: true, CheckDependencies: true, CheckVersions: true}
}

// StrictValidator returns a validator with every check, including
// optional-field warnings, enabled.
func StrictValidator() Validator {
	v := NewValidator()
	v.WarnMissingOptional = true
	return v
}

// Validate checks lock's internal consistency.
func (v Validator) Validate(lock *Lock) ValidationResult {
	result := validResult()

	if lock.ContentHash == "" {
		result.addError(ValidationError{Kind: "missing_field", Reason: "content-hash"})
	}

	v.checkDuplicates(&result, lock.Packages)
	v.checkDuplicates(&result, lock.PackagesDev)

	v.validatePackages(&result, lock.Packages)
	v.validatePackages(&result, lock.PackagesDev)

	if v.CheckDependencies {
		v.checkDependencyCompleteness(&result, lock)
	}
	if v.CheckCircular {
		v.checkCircularDeps(&result, lock)
	}

	return result
}

// ValidateAgainstManifest runs Validate and additionally checks that
// lock's content hash matches what in would produce, and that every
// manifest requirement (prod and dev) is present in the lock.
func (v Validator) ValidateAgainstManifest(lock *Lock, in GeneratorInput) ValidationResult {
	result := v.Validate(lock)

	expected := ContentHash(in)
	if expected != lock.ContentHash {
		result.addError(ValidationError{Kind: "content_hash_mismatch", Expected: expected, Actual: lock.ContentHash})
	}

	lockedNames := packageNameSet(lock.Packages)
	lockedDevNames := packageNameSet(lock.PackagesDev)

	for name := range in.Require {
		if isPlatformPackage(name) {
			continue
		}
		if !lockedNames[name] {
			result.addError(ValidationError{Kind: "missing_dependency", Package: "(root)", Dependency: name})
		}
	}
	for name := range in.RequireDev {
		if isPlatformPackage(name) {
			continue
		}
		if !lockedDevNames[name] && !lockedNames[name] {
			result.addError(ValidationError{Kind: "missing_dependency", Package: "(root-dev)", Dependency: name})
		}
	}

	return result
}

func (v Validator) checkDuplicates(result *ValidationResult, packages []Package) {
	seen := make(map[string]bool, len(packages))
	for _, p := range packages {
		lower := strings.ToLower(p.Name)
		if seen[lower] {
			result.addError(ValidationError{Kind: "duplicate_package", Package: p.Name})
		}
		seen[lower] = true
	}
}

func (v Validator) validatePackages(result *ValidationResult, packages []Package) {
	for _, p := range packages {
		if !strings.Contains(p.Name, "/") {
			result.addError(ValidationError{Kind: "invalid_package", Package: p.Name, Reason: "expected vendor/name format"})
		}
		if p.Version == "" {
			result.addError(ValidationError{Kind: "invalid_package", Package: p.Name, Reason: "empty version"})
		}
		if v.CheckVersions && !isValidVersionFormat(p.Version) {
			result.addWarning(ValidationWarning{Kind: "unusual_version", Package: p.Name, Version: p.Version})
		}
		if p.Source == nil && p.Dist == nil {
			result.addWarning(ValidationWarning{Kind: "missing_install_source", Package: p.Name})
		}
		if p.Abandoned {
			result.addWarning(ValidationWarning{Kind: "deprecated_package", Package: p.Name})
		}
		if v.WarnMissingOptional {
			if p.Description == "" {
				result.addWarning(ValidationWarning{Kind: "missing_optional_field", Package: p.Name, Field: "description"})
			}
			if len(p.License) == 0 {
				result.addWarning(ValidationWarning{Kind: "missing_optional_field", Package: p.Name, Field: "license"})
			}
		}
	}
}

func (v Validator) checkDependencyCompleteness(result *ValidationResult, lock *Lock) {
	all := packageNameSet(lock.Packages)
	for name := range packageNameSet(lock.PackagesDev) {
		all[name] = true
	}

	for _, p := range allPackages(lock) {
		for dep := range p.Require {
			if isPlatformPackage(dep) {
				continue
			}
			if !all[dep] {
				result.addError(ValidationError{Kind: "missing_dependency", Package: p.Name, Dependency: dep})
			}
		}
	}
}

func (v Validator) checkCircularDeps(result *ValidationResult, lock *Lock) {
	graph := map[string][]string{}
	for _, p := range allPackages(lock) {
		for dep := range p.Require {
			if !isPlatformPackage(dep) {
				graph[p.Name] = append(graph[p.Name], dep)
			}
		}
	}
	for name := range graph {
		sort.Strings(graph[name])
	}

	names := make([]string, 0)
	for _, p := range allPackages(lock) {
		names = append(names, p.Name)
	}
	sort.Strings(names)

	for _, start := range names {
		visited := map[string]bool{}
		var path []string
		if cycle := findCycle(graph, start, visited, path); cycle != nil {
			result.addError(ValidationError{Kind: "circular_dependency", Cycle: cycle})
			return
		}
	}
}

// findCycle performs a depth-first search from current, returning the
// first cycle found as the path from its start back to itself.
func findCycle(graph map[string][]string, current string, visited map[string]bool, path []string) []string {
	for _, n := range path {
		if n == current {
			idx := indexOf(path, current)
			cycle := append([]string(nil), path[idx:]...)
			return append(cycle, current)
		}
	}
	if visited[current] {
		return nil
	}
	visited[current] = true
	path = append(path, current)

	for _, next := range graph[current] {
		if cycle := findCycle(graph, next, visited, path); cycle != nil {
			return cycle
		}
	}
	return nil
}

func indexOf(path []string, target string) int {
	for i, n := range path {
		if n == target {
			return i
		}
	}
	return -1
}

func allPackages(lock *Lock) []Package {
	all := make([]Package, 0, len(lock.Packages)+len(lock.PackagesDev))
	all = append(all, lock.Packages...)
	all = append(all, lock.PackagesDev...)
	return all
}

func packageNameSet(packages []Package) map[string]bool {
	set := make(map[string]bool, len(packages))
	for _, p := range packages {
		set[p.Name] = true
	}
	return set
}

// isPlatformPackage reports whether name refers to a PHP runtime,
// extension, or Composer itself rather than an installable package.
func isPlatformPackage(name string) bool {
	switch {
	case name == "php", name == "composer", name == "composer-plugin-api", name == "composer-runtime-api":
		return true
	case strings.HasPrefix(name, "php-"), strings.HasPrefix(name, "ext-"), strings.HasPrefix(name, "lib-"):
		return true
	default:
		return false
	}
}

// DetectManualEdits looks for signs that lock was hand-modified rather
// than produced by BuildLock: a non-boilerplate _readme, packages not in
// alphabetical order, or stability flags outside Composer's known set.
func DetectManualEdits(lock *Lock) []string {
	var signs []string

	if len(lock.Readme) != len(defaultReadme) {
		signs = append(signs, "readme section has unexpected number of lines")
	} else {
		for i, want := range defaultReadme {
			if lock.Readme[i] != want {
				signs = append(signs, fmt.Sprintf("readme line %d differs from expected", i+1))
				break
			}
		}
	}

	if !sort.SliceIsSorted(lock.Packages, func(i, j int) bool { return lock.Packages[i].Name < lock.Packages[j].Name }) {
		signs = append(signs, "packages are not sorted alphabetically")
	}
	if !sort.SliceIsSorted(lock.PackagesDev, func(i, j int) bool { return lock.PackagesDev[i].Name < lock.PackagesDev[j].Name }) {
		signs = append(signs, "dev packages are not sorted alphabetically")
	}

	validFlags := map[int]bool{0: true, 5: true, 10: true, 15: true, 20: true}
	names := make([]string, 0, len(lock.StabilityFlags))
	for name := range lock.StabilityFlags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !validFlags[lock.StabilityFlags[name]] {
			signs = append(signs, fmt.Sprintf("package %q has unusual stability flag: %d", name, lock.StabilityFlags[name]))
		}
	}

	return signs
}

// DriftResult reports whether a lock matches the manifest it was built
// from, per spec's content-hash drift contract.
type DriftResult struct {
	IsCurrent      bool
	ExpectedHash   string
	ActualHash     string
	AddedDeps      []string
	RemovedDeps    []string
	AddedDevDeps   []string
	RemovedDevDeps []string
}

// HasChanges reports whether lock no longer matches the manifest it
// should reflect.
func (d DriftResult) HasChanges() bool {
	return !d.IsCurrent || len(d.AddedDeps) > 0 || len(d.RemovedDeps) > 0 ||
		len(d.AddedDevDeps) > 0 || len(d.RemovedDevDeps) > 0
}

// Summary renders a one-line human-readable description of the drift.
func (d DriftResult) Summary() string {
	if d.IsCurrent && !d.HasChanges() {
		return "lock file is up to date"
	}
	var parts []string
	if !d.IsCurrent {
		parts = append(parts, "content hash mismatch")
	}
	if len(d.AddedDeps) > 0 {
		parts = append(parts, fmt.Sprintf("%d new dependencies: %s", len(d.AddedDeps), strings.Join(d.AddedDeps, ", ")))
	}
	if len(d.RemovedDeps) > 0 {
		parts = append(parts, fmt.Sprintf("%d removed dependencies: %s", len(d.RemovedDeps), strings.Join(d.RemovedDeps, ", ")))
	}
	if len(d.AddedDevDeps) > 0 {
		parts = append(parts, fmt.Sprintf("%d new dev dependencies: %s", len(d.AddedDevDeps), strings.Join(d.AddedDevDeps, ", ")))
	}
	if len(d.RemovedDevDeps) > 0 {
		parts = append(parts, fmt.Sprintf("%d removed dev dependencies: %s", len(d.RemovedDevDeps), strings.Join(d.RemovedDevDeps, ", ")))
	}
	return strings.Join(parts, "; ")
}

// CheckDrift compares lock against the manifest inputs that should have
// produced it, per spec §4.6's content-hash drift contract.
func CheckDrift(lock *Lock, in GeneratorInput) DriftResult {
	expected := ContentHash(in)
	return DriftResult{
		IsCurrent:      expected == lock.ContentHash,
		ExpectedHash:   expected,
		ActualHash:     lock.ContentHash,
		AddedDeps:      findMissingInLock(in.Require, lock.Packages),
		RemovedDeps:    findExtraInLock(in.Require, lock.Packages),
		AddedDevDeps:   findMissingInLock(in.RequireDev, lock.PackagesDev),
		RemovedDevDeps: findExtraInLock(in.RequireDev, lock.PackagesDev),
	}
}

func findMissingInLock(require map[string]string, packages []Package) []string {
	locked := packageNameSet(packages)
	var missing []string
	for name := range require {
		if !isPlatformPackage(name) && !locked[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func findExtraInLock(require map[string]string, packages []Package) []string {
	var extra []string
	for _, p := range packages {
		if _, ok := require[p.Name]; !ok {
			extra = append(extra, p.Name)
		}
	}
	sort.Strings(extra)
	return extra
}

// isValidVersionFormat accepts semver-like strings, dev-* branch
// pseudo-versions, and *-x-dev branch aliases; anything else is flagged
// as unusual but not rejected outright.
func isValidVersionFormat(version string) bool {
	v := strings.TrimPrefix(version, "v")

	if v == "" {
		return false
	}
	if strings.HasPrefix(v, "dev-") {
		return true
	}
	if strings.Contains(v, "x-dev") {
		return true
	}

	parts := strings.Split(v, ".")
	for _, part := range parts {
		digits := 0
		for _, r := range part {
			if r < '0' || r > '9' {
				break
			}
			digits++
		}
		if digits == 0 {
			return false
		}
	}
	return true
}
