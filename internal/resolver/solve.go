package resolver

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"github.com/libretto-pm/libretto/internal/index"
	"github.com/libretto-pm/libretto/internal/libretr"
	"github.com/libretto-pm/libretto/internal/platform"
	"github.com/libretto-pm/libretto/internal/version"
	"github.com/sirupsen/logrus"
)

// constraintEntry is one requirer's constraint on a package name.
type constraintEntry struct {
	from       string // requiring package name, "" for a root requirement
	constraint *version.Constraint
}

// depAdd records that a decision added a constraint entry to a package, so
// it can be unwound symmetrically on backtrack.
type depAdd struct {
	name string
}

// decision is one resolver choice point: a package assigned a candidate
// (or, for a virtual package, a provider/replacer chosen on its behalf).
type decision struct {
	name         string
	candidates   []*index.PackageVersion
	pos          int
	usingVirtual bool
	deps         []depAdd
}

type pqItem struct {
	name     string
	priority int
}

type pq []pqItem

func (q pq) Len() int { return len(q) }
func (q pq) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority // more constrainers decided first
	}
	return q[i].name < q[j].name
}
func (q pq) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *pq) Push(x any)        { *q = append(*q, x.(pqItem)) }
func (q *pq) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ConflictError reports that no satisfying assignment exists for a package.
type ConflictError struct {
	Package string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("no version of %q satisfies the combined requirements on it", e.Package)
}

type solveState struct {
	ctx          context.Context
	idx          *index.Index
	platform     *platform.Description
	mode         Mode
	minStability version.Stability
	log          *logrus.Entry

	constraints map[string][]constraintEntry
	assigned    map[string]*index.PackageVersion
	virtual     map[string]string // virtual package name -> resolved provider package name
	queue       *pq
	decisions   []*decision
}

func newSolveState(ctx context.Context, idx *index.Index, plat *platform.Description, mode Mode, minStability version.Stability, log *logrus.Entry) *solveState {
	q := &pq{}
	heap.Init(q)
	return &solveState{
		ctx:          ctx,
		idx:          idx,
		platform:     plat,
		mode:         mode,
		minStability: minStability,
		log:          log,
		constraints:  make(map[string][]constraintEntry),
		assigned:     make(map[string]*index.PackageVersion),
		virtual:      make(map[string]string),
		queue:        q,
	}
}

func (s *solveState) addConstraint(name, from string, c *version.Constraint) {
	s.constraints[name] = append(s.constraints[name], constraintEntry{from: from, constraint: c})
}

func (s *solveState) removeConstraint(name, from string) {
	entries := s.constraints[name]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].from == from {
			s.constraints[name] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

func (s *solveState) mergeConstraints(name string) *version.Constraint {
	merged, _ := version.ParseConstraint("*")
	for _, e := range s.constraints[name] {
		merged = merged.Intersection(e.constraint)
	}
	return merged
}

func (s *solveState) enqueue(name string) bool {
	if _, done := s.assigned[name]; done {
		return false
	}
	if _, done := s.virtual[name]; done {
		return false
	}
	heap.Push(s.queue, pqItem{name: name, priority: len(s.constraints[name])})
	return true
}

func (s *solveState) maybeRequeue(name string) {
	if len(s.constraints[name]) == 0 {
		return
	}
	if _, done := s.assigned[name]; done {
		return
	}
	if _, done := s.virtual[name]; done {
		return
	}
	s.enqueue(name)
}

// run drives the backtracking search to completion or exhaustion.
func (s *solveState) run() error {
	for s.queue.Len() > 0 {
		item := heap.Pop(s.queue).(pqItem)
		name := item.name
		if _, done := s.assigned[name]; done {
			continue
		}
		if _, done := s.virtual[name]; done {
			continue
		}
		if len(s.constraints[name]) == 0 {
			continue // no longer required by anything live
		}
		if err := s.decide(name); err != nil {
			return err
		}
	}
	return nil
}

// decide resolves one package name: platform check, real-package candidate
// search, or provides/replaces fallback, pushing a decision on success and
// backjumping on failure.
func (s *solveState) decide(name string) error {
	if platform.IsPlatformPackage(name) {
		merged := s.mergeConstraints(name)
		if s.platform.Satisfies(name, merged) {
			return nil
		}
		return s.fail(name)
	}

	merged := s.mergeConstraints(name)
	entry, err := s.idx.Get(s.ctx, name)
	if err != nil {
		return libretr.Wrap(libretr.CodeResolution, err, "fetching "+name)
	}

	var candidates []*index.PackageVersion
	usingVirtual := false
	if entry != nil {
		candidates = s.filterAndSort(entry.Versions, merged)
	}
	if len(candidates) == 0 {
		candidates = s.providerCandidates(name, merged)
		usingVirtual = len(candidates) > 0
	}
	if len(candidates) == 0 {
		return s.fail(name)
	}

	d := &decision{name: name, candidates: candidates, pos: 0, usingVirtual: usingVirtual}
	if err := s.applyDecision(d); err != nil {
		return err
	}
	s.decisions = append(s.decisions, d)
	return nil
}

func (s *solveState) filterAndSort(versions []*index.PackageVersion, c *version.Constraint) []*index.PackageVersion {
	var out []*index.PackageVersion
	for _, pv := range versions {
		if pv.Version.Stability() < s.minStability {
			continue
		}
		if c.Matches(pv.Version) {
			out = append(out, pv)
		}
	}
	return s.orderByMode(out)
}

func (s *solveState) orderByMode(in []*index.PackageVersion) []*index.PackageVersion {
	out := append([]*index.PackageVersion(nil), in...)
	switch s.mode {
	case PreferLowest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Version.Compare(out[j].Version) < 0 })
	case PreferStable:
		sort.SliceStable(out, func(i, j int) bool {
			si, sj := out[i].Version.Stability(), out[j].Version.Stability()
			if si != sj {
				return si > sj
			}
			return out[i].Version.Compare(out[j].Version) > 0
		})
	default: // PreferHighest; input is already descending but re-sort defensively
		sort.SliceStable(out, func(i, j int) bool { return out[i].Version.Compare(out[j].Version) > 0 })
	}
	return out
}

// providerCandidates finds packages that provide or replace a virtual (or
// currently-absent) package name at a version satisfying c.
func (s *solveState) providerCandidates(name string, c *version.Constraint) []*index.PackageVersion {
	var raw []index.Provider
	raw = append(raw, s.idx.GetProviders(name)...)
	raw = append(raw, s.idx.GetReplacers(name)...)

	seen := make(map[string]bool)
	var out []*index.PackageVersion
	for _, p := range raw {
		if !c.Matches(p.Version) {
			continue
		}
		key := p.Package + "@" + p.Version.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		providerEntry, err := s.idx.Get(s.ctx, p.Package)
		if err != nil || providerEntry == nil {
			continue
		}
		for _, pv := range providerEntry.Versions {
			if pv.Version.Equal(p.Version) {
				out = append(out, pv)
				break
			}
		}
	}
	return s.orderByMode(out)
}

// applyDecision assigns decisions[d].candidates[d.pos], propagating its
// dependency constraints (or, for a virtual resolution, pinning the chosen
// provider) and enqueuing newly-reachable packages.
func (s *solveState) applyDecision(d *decision) error {
	chosen := d.candidates[d.pos]
	d.deps = nil

	if d.usingVirtual {
		pin, ok := version.ParseConstraint("=" + chosen.Version.String())
		if !ok {
			return libretr.New(libretr.CodeResolution, "unparseable pinned version "+chosen.Version.String())
		}
		s.addConstraint(chosen.Name, d.name, pin)
		d.deps = append(d.deps, depAdd{name: chosen.Name})
		s.enqueue(chosen.Name)
		s.virtual[d.name] = chosen.Name
		return nil
	}

	s.assigned[d.name] = chosen
	depNames := make([]string, 0, len(chosen.Dependencies))
	for depName := range chosen.Dependencies {
		depNames = append(depNames, depName)
	}
	sort.Strings(depNames)
	for _, depName := range depNames {
		raw := chosen.Dependencies[depName]
		c, ok := version.ParseConstraint(raw)
		if !ok {
			return libretr.New(libretr.CodeResolution, fmt.Sprintf("%s requires %s with invalid constraint %q", d.name, depName, raw))
		}
		s.addConstraint(depName, d.name, c)
		d.deps = append(d.deps, depAdd{name: depName})
		s.enqueue(depName)
	}
	return nil
}

// undoApplied reverses applyDecision's effects without removing d from the
// decision list, so its candidate position can advance and be retried.
func (s *solveState) undoApplied(d *decision) {
	if d.usingVirtual {
		providerName := d.candidates[d.pos].Name
		s.removeConstraint(providerName, d.name)
		delete(s.virtual, d.name)
		s.maybeRequeue(providerName)
	} else {
		delete(s.assigned, d.name)
		for _, da := range d.deps {
			s.removeConstraint(da.name, d.name)
			s.maybeRequeue(da.name)
		}
	}
	d.deps = nil
}

// fail triggers conflict-directed backjumping for name: it walks the
// decision stack backward to the most recent choice point touching the
// growing conflict set, undoes every decision above it, and retries that
// choice point's next candidate. A choice point that exhausts its
// candidates joins the conflict set itself, so the search keeps looking
// further back for anything that constrained IT, rather than narrowly
// re-targeting just the original package.
func (s *solveState) fail(name string) error {
	conflictSet := map[string]bool{name: true}
	for {
		j := -1
		for k := len(s.decisions) - 1; k >= 0; k-- {
			if touchesAny(s.decisions[k], conflictSet) {
				j = k
				break
			}
		}
		if j < 0 {
			return libretr.Wrap(libretr.CodeResolution, &ConflictError{Package: name}, "dependency resolution failed")
		}

		for k := len(s.decisions) - 1; k > j; k-- {
			s.undoApplied(s.decisions[k])
		}
		s.decisions = s.decisions[:j+1]

		d := s.decisions[j]
		s.undoApplied(d)
		d.pos++
		if d.pos < len(d.candidates) {
			if err := s.applyDecision(d); err != nil {
				return err
			}
			return nil
		}

		s.decisions = s.decisions[:j]
		s.maybeRequeue(d.name)
		conflictSet[d.name] = true
	}
}

func touchesAny(d *decision, names map[string]bool) bool {
	if names[d.name] {
		return true
	}
	for _, da := range d.deps {
		if names[da.name] {
			return true
		}
	}
	return false
}

// result builds the final Resolution and a dependencies-before-dependents
// install order via a simple topological sort over the assigned packages.
func (s *solveState) result() *Resolution {
	res := &Resolution{Packages: make(map[string]*index.PackageVersion, len(s.assigned))}
	for name, pv := range s.assigned {
		res.Packages[name] = pv
	}

	visited := make(map[string]bool, len(res.Packages))
	var order []string
	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		pv, ok := res.Packages[name]
		if !ok {
			return
		}
		deps := make([]string, 0, len(pv.Dependencies))
		for d := range pv.Dependencies {
			deps = append(deps, d)
		}
		sort.Strings(deps)
		for _, d := range deps {
			if real, ok := s.virtual[d]; ok {
				visit(real)
				continue
			}
			visit(d)
		}
		order = append(order, name)
	}

	names := make([]string, 0, len(res.Packages))
	for name := range res.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		visit(name)
	}
	res.Order = order
	return res
}
