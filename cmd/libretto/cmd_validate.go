package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/libretto-pm/libretto/internal/libretr"
	"github.com/libretto-pm/libretto/internal/lockfile"
)

var validateStrict bool

func init() {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check composer.lock for structural issues and drift against composer.json",
		RunE:  runValidate,
	}
	cmd.Flags().BoolVar(&validateStrict, "strict", false, "also warn on missing optional fields")
	argparser.AddCommand(cmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(lockPath())
	if err != nil {
		return err
	}
	lock, err := lockfile.Parse(data)
	if err != nil {
		return err
	}

	validator := lockfile.NewValidator()
	if validateStrict {
		validator = lockfile.StrictValidator()
	}

	result := validator.Validate(lock)
	for _, w := range result.Warnings {
		fmt.Fprintln(cmd.OutOrStdout(), "warning:", w.String())
	}
	for _, e := range result.Errors {
		fmt.Fprintln(cmd.OutOrStdout(), "error:", e.Error())
	}

	if edits := lockfile.DetectManualEdits(lock); len(edits) > 0 {
		for _, e := range edits {
			fmt.Fprintln(cmd.OutOrStdout(), "notice:", e)
		}
	}

	drift := lockfile.CheckDrift(lock, buildGeneratorInput(m))
	if drift.HasChanges() {
		fmt.Fprintln(cmd.OutOrStdout(), "drift:", drift.Summary())
		return libretr.New(libretr.CodeLockTimeout, "lock file is out of date with composer.json").WithPath(lockPath())
	}

	if !result.Valid {
		return libretr.New(libretr.CodeInvalidManifest, "composer.lock failed validation").WithPath(lockPath())
	}

	fmt.Fprintln(cmd.OutOrStdout(), "composer.lock is valid and up to date")
	return nil
}
