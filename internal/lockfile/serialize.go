package lockfile

import (
	"sort"
	"strconv"
	"strings"
)

// Serialize renders lock as canonical composer.lock JSON: fixed top-level
// key order, four-space indentation, LF newlines, no trailing whitespace,
// per spec §4.6. This is a hand-written writer rather than
// encoding/json.Marshal because Go's encoder does not let callers control
// map or struct field order, and the lock file's byte-for-byte stability
// across runs and hosts is part of its contract.
func Serialize(lock *Lock) []byte {
	var b strings.Builder
	b.WriteString("{\n")

	writeReadme(&b, lock.Readme)
	writeStringField(&b, "content-hash", lock.ContentHash, true)
	writePackageArray(&b, "packages", lock.Packages)
	writePackageArray(&b, "packages-dev", lock.PackagesDev)
	writeAliases(&b, lock.Aliases)
	writeStringField(&b, "minimum-stability", lock.MinimumStability, true)
	writeIntMap(&b, "stability-flags", lock.StabilityFlags, true)
	writeBoolField(&b, "prefer-stable", lock.PreferStable, true)
	writeBoolField(&b, "prefer-lowest", lock.PreferLowest, true)
	writeStringMap(&b, "platform", lock.Platform, true)
	writeStringMap(&b, "platform-dev", lock.PlatformDev, true)
	writeStringField(&b, "plugin-api-version", lock.PluginAPIVersion, false)

	b.WriteString("\n}\n")
	return []byte(b.String())
}

func writeReadme(b *strings.Builder, lines []string) {
	b.WriteString("    \"_readme\": [")
	for i, line := range lines {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("\n        \"")
		b.WriteString(escapeJSON(line))
		b.WriteByte('"')
	}
	b.WriteString("\n    ],\n")
}

func writeStringField(b *strings.Builder, key, value string, trailingComma bool) {
	b.WriteString("    \"")
	b.WriteString(key)
	b.WriteString("\": \"")
	b.WriteString(escapeJSON(value))
	b.WriteByte('"')
	if trailingComma {
		b.WriteByte(',')
	}
	b.WriteByte('\n')
}

func writeBoolField(b *strings.Builder, key string, value bool, trailingComma bool) {
	b.WriteString("    \"")
	b.WriteString(key)
	b.WriteString("\": ")
	b.WriteString(strconv.FormatBool(value))
	if trailingComma {
		b.WriteByte(',')
	}
	b.WriteByte('\n')
}

func writeStringMap(b *strings.Builder, key string, m map[string]string, trailingComma bool) {
	b.WriteString("    \"")
	b.WriteString(key)
	b.WriteString("\": ")
	b.WriteString(inlineStringMap(m))
	if trailingComma {
		b.WriteByte(',')
	}
	b.WriteByte('\n')
}

func writeIntMap(b *strings.Builder, key string, m map[string]int, trailingComma bool) {
	b.WriteString("    \"")
	b.WriteString(key)
	b.WriteString("\": ")
	if len(m) == 0 {
		b.WriteString("{}")
	} else {
		keys := sortedKeysInt(m)
		b.WriteString("{ ")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('"')
			b.WriteString(escapeJSON(k))
			b.WriteString("\": ")
			b.WriteString(strconv.Itoa(m[k]))
		}
		b.WriteString(" }")
	}
	if trailingComma {
		b.WriteByte(',')
	}
	b.WriteByte('\n')
}

func inlineStringMap(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := sortedKeysString(m)
	var b strings.Builder
	b.WriteString("{ ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('"')
		b.WriteString(escapeJSON(k))
		b.WriteString("\": \"")
		b.WriteString(escapeJSON(m[k]))
		b.WriteByte('"')
	}
	b.WriteString(" }")
	return b.String()
}

func writePackageArray(b *strings.Builder, key string, packages []Package) {
	b.WriteString("    \"")
	b.WriteString(key)
	b.WriteString("\": ")
	if len(packages) == 0 {
		b.WriteString("[],\n")
		return
	}
	b.WriteString("[\n")
	for i, p := range packages {
		writePackage(b, p, 8)
		if i < len(packages)-1 {
			b.WriteString(",\n")
		} else {
			b.WriteString("\n")
		}
	}
	b.WriteString("    ],\n")
}

// writePackage emits one package object with fields in the exact ASCII
// order spec §4.6 names: "autoload, authors, description, dist, homepage,
// keywords, license, name, notification-url, require, require-dev,
// source, time, type", followed by "version", which is always written;
// the other absent/empty fields are omitted entirely.
func writePackage(b *strings.Builder, p Package, indent int) {
	prefix := strings.Repeat(" ", indent)
	inner := strings.Repeat(" ", indent+4)

	type field struct {
		key   string
		value string
	}
	var fields []field

	if !p.Autoload.isEmpty() {
		fields = append(fields, field{"autoload", inlineAutoload(p.Autoload)})
	}
	if len(p.Authors) > 0 {
		fields = append(fields, field{"authors", inlineAuthors(p.Authors)})
	}
	if p.Description != "" {
		fields = append(fields, field{"description", quoteJSON(p.Description)})
	}
	if p.Dist != nil {
		fields = append(fields, field{"dist", inlineDist(*p.Dist)})
	}
	if p.Homepage != "" {
		fields = append(fields, field{"homepage", quoteJSON(p.Homepage)})
	}
	if len(p.Keywords) > 0 {
		fields = append(fields, field{"keywords", inlineStringArray(p.Keywords)})
	}
	if len(p.License) > 0 {
		fields = append(fields, field{"license", inlineStringArray(p.License)})
	}
	fields = append(fields, field{"name", quoteJSON(p.Name)})
	if p.NotificationURL != "" {
		fields = append(fields, field{"notification-url", quoteJSON(p.NotificationURL)})
	}
	if len(p.Require) > 0 {
		fields = append(fields, field{"require", inlineStringMap(p.Require)})
	}
	if len(p.RequireDev) > 0 {
		fields = append(fields, field{"require-dev", inlineStringMap(p.RequireDev)})
	}
	if p.Source != nil {
		fields = append(fields, field{"source", inlineSource(*p.Source)})
	}
	if p.Time != "" {
		fields = append(fields, field{"time", quoteJSON(p.Time)})
	}
	if p.Type != "" {
		fields = append(fields, field{"type", quoteJSON(p.Type)})
	}
	fields = append(fields, field{"version", quoteJSON(p.Version)})
	sort.Slice(fields, func(i, j int) bool { return fields[i].key < fields[j].key })

	b.WriteString(prefix)
	b.WriteString("{\n")
	for i, f := range fields {
		b.WriteString(inner)
		b.WriteByte('"')
		b.WriteString(f.key)
		b.WriteString("\": ")
		b.WriteString(f.value)
		if i < len(fields)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(prefix)
	b.WriteByte('}')
}

func inlineSource(s Source) string {
	return "{ \"type\": " + quoteJSON(s.Type) + ", \"url\": " + quoteJSON(s.URL) +
		", \"reference\": " + quoteJSON(s.Reference) + " }"
}

func inlineDist(d Dist) string {
	parts := []string{"\"type\": " + quoteJSON(d.Type), "\"url\": " + quoteJSON(d.URL)}
	if d.Reference != "" {
		parts = append(parts, "\"reference\": "+quoteJSON(d.Reference))
	}
	if d.Shasum != "" {
		parts = append(parts, "\"shasum\": "+quoteJSON(d.Shasum))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func inlineStringArray(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = quoteJSON(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func inlineAuthors(authors []Author) string {
	parts := make([]string, len(authors))
	for i, a := range authors {
		fields := []string{"\"name\": " + quoteJSON(a.Name)}
		if a.Email != "" {
			fields = append(fields, "\"email\": "+quoteJSON(a.Email))
		}
		if a.Homepage != "" {
			fields = append(fields, "\"homepage\": "+quoteJSON(a.Homepage))
		}
		if a.Role != "" {
			fields = append(fields, "\"role\": "+quoteJSON(a.Role))
		}
		parts[i] = "{ " + strings.Join(fields, ", ") + " }"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func inlineAutoload(a Autoload) string {
	var parts []string
	if len(a.PSR4) > 0 {
		parts = append(parts, "\"psr-4\": "+inlineStringOrArrayMap(a.PSR4))
	}
	if len(a.PSR0) > 0 {
		parts = append(parts, "\"psr-0\": "+inlineStringOrArrayMap(a.PSR0))
	}
	if len(a.Classmap) > 0 {
		parts = append(parts, "\"classmap\": "+inlineStringArray(a.Classmap))
	}
	if len(a.Files) > 0 {
		parts = append(parts, "\"files\": "+inlineStringArray(a.Files))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func inlineStringOrArrayMap(m map[string][]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		v := m[k]
		if len(v) == 1 {
			parts[i] = quoteJSON(k) + ": " + quoteJSON(v[0])
		} else {
			parts[i] = quoteJSON(k) + ": " + inlineStringArray(v)
		}
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func writeAliases(b *strings.Builder, aliases []Alias) {
	b.WriteString("    \"aliases\": ")
	if len(aliases) == 0 {
		b.WriteString("[],\n")
		return
	}
	b.WriteString("[\n")
	for i, a := range aliases {
		b.WriteString("        { \"package\": ")
		b.WriteString(quoteJSON(a.Package))
		b.WriteString(", \"version\": ")
		b.WriteString(quoteJSON(a.Version))
		b.WriteString(", \"alias\": ")
		b.WriteString(quoteJSON(a.Alias))
		b.WriteString(", \"alias_normalized\": ")
		b.WriteString(quoteJSON(a.AliasNormalized))
		b.WriteString(" }")
		if i < len(aliases)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("    ],\n")
}

func quoteJSON(s string) string {
	return "\"" + escapeJSON(s) + "\""
}

// escapeJSON implements spec §4.6's exact escape set:
// \", \\, \n, \r, \t, \uXXXX for other control characters.
func escapeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString("\\u")
				hex := strconv.FormatInt(int64(r), 16)
				for len(hex) < 4 {
					hex = "0" + hex
				}
				b.WriteString(hex)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func sortedKeysString(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysInt(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
