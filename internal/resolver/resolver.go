// Package resolver implements Libretto's dependency resolver: a
// backtracking search over the package index that picks one version per
// package satisfying every constraint imposed on it, with MRV-ordered
// package selection and conflict-directed backjumping, modeled on the
// selection-queue/backtrack-stack shape of a Composer-style SAT solver.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/libretto-pm/libretto/internal/index"
	"github.com/libretto-pm/libretto/internal/libretr"
	"github.com/libretto-pm/libretto/internal/platform"
	"github.com/libretto-pm/libretto/internal/version"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Mode controls candidate ordering when more than one version satisfies a
// package's accumulated constraint.
type Mode int

const (
	// PreferHighest tries the newest satisfying version first (default).
	PreferHighest Mode = iota
	// PreferLowest tries the oldest satisfying version first.
	PreferLowest
	// PreferStable tries the newest *stable* version first, falling back to
	// unstable only when no stable candidate satisfies the constraint.
	PreferStable
)

// Request is the root set of constraints to resolve.
type Request struct {
	Require     map[string]string
	RequireDev  map[string]string
	Mode        Mode
	Platform    *platform.Description
	MinimumStability version.Stability
}

// Resolution is a complete, consistent assignment of one version to every
// package reachable from the request.
type Resolution struct {
	Packages map[string]*index.PackageVersion
	Order    []string // topological, dependencies before dependents
}

// Resolver resolves Requests against a package Index.
type Resolver struct {
	idx *index.Index
	log *logrus.Entry
}

// New builds a Resolver backed by idx.
func New(idx *index.Index, log *logrus.Entry) *Resolver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Resolver{idx: idx, log: log}
}

// Resolve runs the two-phase resolution described in spec §4.3.6: phase one
// resolves Require alone; phase two re-resolves with phase one's choices
// pinned exactly and RequireDev merged in, so dev requirements can add new
// packages but can never perturb a production choice.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	if req.Platform == nil {
		req.Platform = platform.NewDescription(nil)
	}

	phase1, err := r.resolveInternal(ctx, req, req.Require, nil)
	if err != nil {
		return nil, errors.Wrap(err, "resolving production requirements")
	}
	if len(req.RequireDev) == 0 {
		return phase1, nil
	}

	merged := make(map[string]string, len(req.Require)+len(req.RequireDev))
	for name, c := range req.Require {
		merged[name] = c
	}
	for name, c := range req.RequireDev {
		merged[name] = c
	}

	pinned := make(map[string]string, len(phase1.Packages))
	for name, pv := range phase1.Packages {
		pinned[name] = "=" + pv.Version.String()
	}

	phase2, err := r.resolveInternal(ctx, req, merged, pinned)
	if err != nil {
		return nil, errors.Wrap(err, "resolving dev requirements")
	}
	return phase2, nil
}

func (r *Resolver) resolveInternal(ctx context.Context, req Request, require map[string]string, pin map[string]string) (*Resolution, error) {
	s := newSolveState(ctx, r.idx, req.Platform, req.Mode, req.MinimumStability, r.log)

	for name, raw := range pin {
		c, ok := version.ParseConstraint(raw)
		if !ok {
			return nil, libretr.New(libretr.CodeInvalidManifest, fmt.Sprintf("invalid pinned constraint for %s: %q", name, raw))
		}
		s.addConstraint(name, "", c)
	}
	names := make([]string, 0, len(require))
	for name, raw := range require {
		c, ok := version.ParseConstraint(raw)
		if !ok {
			return nil, libretr.New(libretr.CodeInvalidManifest, fmt.Sprintf("invalid constraint for %s: %q", name, raw))
		}
		s.addConstraint(name, "", c)
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.enqueue(name)
	}

	if err := s.run(); err != nil {
		return nil, err
	}
	if cycle, found := r.idx.DetectCycle(); found {
		return nil, libretr.New(libretr.CodeResolution,
			fmt.Sprintf("cycle detected in provide/replace graph: %s", strings.Join(cycle, " -> ")))
	}
	res := s.result()
	r.warnAbandoned(res)
	return res, nil
}

// warnAbandoned logs a warning for every selected package the repository
// marks abandoned. Per spec §4.3, an abandoned package never blocks
// resolution on its own — it's surfaced, not rejected.
func (r *Resolver) warnAbandoned(res *Resolution) {
	names := make([]string, 0, len(res.Packages))
	for name := range res.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pv := res.Packages[name]
		if pv.Abandoned == "" {
			continue
		}
		entry := r.log.WithField("package", name).WithField("version", pv.Version.String())
		if pv.Abandoned == "true" {
			entry.Warn("resolver: selected package is abandoned")
		} else {
			entry.WithField("replacement", pv.Abandoned).Warn("resolver: selected package is abandoned")
		}
	}
}
