package lockfile

import (
	"sort"
	"strconv"
	"strings"

	"github.com/libretto-pm/libretto/internal/integrity"
)

// ContentHash computes the lock file's content hash: a BLAKE3 digest over
// a canonical byte serialisation of exactly the fields that determine
// whether composer.json and composer.lock are in sync (spec §4.6). The
// same input always serialises to the same bytes, independent of map
// iteration order, host, or run.
func ContentHash(in GeneratorInput) string {
	var b strings.Builder
	writeSortedMap(&b, "require", in.Require)
	writeSortedMap(&b, "require-dev", in.RequireDev)
	b.WriteString("minimum-stability=")
	b.WriteString(in.MinimumStability)
	b.WriteByte('\n')
	b.WriteString("prefer-stable=")
	b.WriteString(strconv.FormatBool(in.PreferStable))
	b.WriteByte('\n')
	b.WriteString("prefer-lowest=")
	b.WriteString(strconv.FormatBool(in.PreferLowest))
	b.WriteByte('\n')
	writeSortedMap(&b, "platform", in.Platform)
	writeSortedMap(&b, "platform-overrides", in.PlatformOverrides)

	return integrity.Hash([]byte(b.String())).String()
}

func writeSortedMap(b *strings.Builder, section string, m map[string]string) {
	b.WriteString(section)
	b.WriteString("={")
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k])
	}
	b.WriteString("}\n")
}
