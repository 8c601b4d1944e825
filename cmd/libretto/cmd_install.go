package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/libretto-pm/libretto/internal/autoload"
	"github.com/libretto-pm/libretto/internal/lockfile"
)

var installOptimize string

func init() {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Resolve composer.json and write composer.lock, then regenerate the autoloader",
		RunE:  runInstall,
	}
	cmd.Flags().StringVar(&installOptimize, "optimize-autoloader", "none", "autoloader optimization level: none, optimized, authoritative")
	argparser.AddCommand(cmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
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
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s with %d package(s), %d dev package(s)\n", lockFilename, len(lock.Packages), len(lock.PackagesDev))

	level, err := parseOptimizeLevel(installOptimize)
	if err != nil {
		return err
	}
	if err := generateAutoload(m, lock, level, log); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Generated autoloader")
	return nil
}

func parseOptimizeLevel(s string) (autoload.Level, error) {
	switch s {
	case "", "none":
		return autoload.None, nil
	case "optimized":
		return autoload.Optimized, nil
	case "authoritative":
		return autoload.Authoritative, nil
	default:
		return autoload.None, fmt.Errorf("unknown --optimize-autoloader value %q", s)
	}
}
