// Command libretto is the Libretto CLI: a drop-in dependency manager for
// composer.json-described PHP projects.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/libretto-pm/libretto/internal/libretr"
)

var argparser = &cobra.Command{
	Use:   "libretto",
	Short: "Resolve, lock, and autoload composer.json dependencies",

	SilenceErrors: true, // main() reports the error itself
	SilenceUsage:  true,
}

var (
	workingDir string
	verbose    bool
)

func init() {
	argparser.PersistentFlags().StringVarP(&workingDir, "working-dir", "d", ".", "directory containing composer.json")
	argparser.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func newLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(log)
}

func main() {
	if err := argparser.Execute(); err != nil {
		fmt.Fprintf(argparser.ErrOrStderr(), "%s: error: %v\n", argparser.CommandPath(), err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a command error to the process exit code spec §6
// assigns: 0 is handled by cobra's own success path, so only the non-zero
// codes are relevant here.
func exitCodeFor(err error) int {
	var le *libretr.Error
	if errors.As(err, &le) {
		return le.Code.ExitCode()
	}
	return 1
}
