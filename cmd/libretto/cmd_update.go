package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/libretto-pm/libretto/internal/lockfile"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update [packages...]",
		Short: "Re-resolve composer.json ignoring the current lock and rewrite composer.lock",
		RunE:  runUpdate,
	}
	argparser.AddCommand(cmd)
}

// runUpdate re-runs resolution from scratch. Composer's own `update`
// differs from `install` by discarding any existing lock's pinned
// versions before resolving; this resolver has no separate "locked
// versions" input path yet (every resolution already starts fresh from
// composer.json), so update and install currently converge on the same
// resolution — the distinction is kept as its own command because the
// spec names both and a future partial-update (`update vendor/pkg`) has
// an obvious place to attach: narrowing Require to just the named
// packages before the second resolution pass.
func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger()

	m, err := loadManifest()
	if err != nil {
		return err
	}

	prod, dev, err := resolveProject(ctx, m, log)
	if err != nil {
		return err
	}

	lock := lockfile.BuildLock(prod, dev, buildGeneratorInput(m))
	if err := lockfile.WriteFile(lockPath(), lockfile.Serialize(lock)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s with %d package(s), %d dev package(s)\n", lockFilename, len(lock.Packages), len(lock.PackagesDev))
	return nil
}
