package autoload

import (
	"fmt"
	"os"
	"strings"

	"github.com/libretto-pm/libretto/internal/integrity"
	"github.com/sirupsen/logrus"
	"github.com/z7zmey/php-parser/node"
	"github.com/z7zmey/php-parser/node/stmt"
	"github.com/z7zmey/php-parser/php7"
	"github.com/z7zmey/php-parser/visitor"
)

// scanResult is what scanFile extracts from one PHP source file.
type scanResult struct {
	classes     []string // fully-qualified class/interface/trait names, leading backslash stripped
	fingerprint string   // whitespace-insensitive content fingerprint, for the incremental cache
}

// scanFile parses path with a PHP-8-targeting AST parser and returns every
// class/interface/trait definition's fully qualified name, respecting
// both nested ("namespace Foo; ...") and bracketed ("namespace Foo {
// ... }") namespace declarations, via the parser's namespace-resolving
// visitor. A parse error is returned to the caller rather than panicking,
// so the generator can log it and skip the file per spec §4.7's failure
// semantics.
func scanFile(path string) (scanResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return scanResult{}, err
	}

	parser := php7.NewParser(src, "8.1")
	parser.WithFreeFloating()
	parser.Parse()

	if errs := parser.GetErrors(); len(errs) > 0 {
		return scanResult{}, fmt.Errorf("%d parse error(s), first: %v", len(errs), errs[0])
	}

	root := parser.GetRootNode()
	if root == nil {
		return scanResult{}, nil
	}

	nsResolver := visitor.NewNamespaceResolver()
	root.Walk(nsResolver)

	var classes []string
	for n, fqn := range nsResolver.ResolvedNames {
		if !isTypeDeclaration(n) {
			continue
		}
		classes = append(classes, strings.TrimPrefix(fqn, "\\"))
	}

	return scanResult{
		classes:     classes,
		fingerprint: contentFingerprint(src),
	}, nil
}

// isTypeDeclaration reports whether n is a class, interface, or trait
// definition.
func isTypeDeclaration(n node.Node) bool {
	switch n.(type) {
	case *stmt.Class, *stmt.Interface, *stmt.Trait:
		return true
	default:
		return false
	}
}

// contentFingerprint hashes src after collapsing all runs of whitespace,
// so pure reformatting (reindentation, blank-line changes) leaves the
// fingerprint unchanged while any token-level edit changes it — a cheap
// stand-in for a true AST-structural hash that the incremental cache uses
// to distinguish "touched but semantically identical" from "changed".
func contentFingerprint(src []byte) string {
	var sb strings.Builder
	sb.Grow(len(src))
	inSpace := false
	for _, b := range src {
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			if !inSpace {
				sb.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		sb.WriteByte(b)
	}
	return integrity.Hash([]byte(sb.String())).String()
}

// logScanWarning is logged (never returned as a hard error) for a file
// the parser rejected, per spec §4.7's "per-file parse errors log a
// warning and skip the file" rule.
func logScanWarning(log *logrus.Entry, path string, err error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.WithError(err).WithField("file", path).Warn("autoload: skipping file that failed to parse")
}
