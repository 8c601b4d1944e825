package autoload

import (
	"encoding/hex"

	"github.com/libretto-pm/libretto/internal/integrity"
)

// vendorDirID is the deterministic class identifier Composer's generated
// ClassLoader embeds in its class name (ComposerAutoloaderInit<id>): 16
// hex chars of BLAKE3(vendorDirString)[0:8].
func vendorDirID(vendorDirString string) string {
	h := integrity.Hash([]byte(vendorDirString))
	return hex.EncodeToString(h[:8])
}

// fileIdentifier is the per-file identifier used as the map key in
// autoload_files.php: 32 hex chars of BLAKE3(relativePath)[0:16].
func fileIdentifier(relativePath string) string {
	h := integrity.Hash([]byte(relativePath))
	return hex.EncodeToString(h[:16])
}
