package autoload

import (
	"path/filepath"
	"strings"
)

// relativeToVendor normalizes an absolute path to vendor-root-relative,
// forward-slash form with a leading slash, per spec §4.7's emission rules.
func relativeToVendor(vendorDir, absPath string) string {
	rel, err := filepath.Rel(vendorDir, absPath)
	if err != nil {
		rel = absPath
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return rel
}
