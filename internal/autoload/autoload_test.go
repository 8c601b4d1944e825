package autoload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/libretto-pm/libretto/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorDirIDIsDeterministicAndSixteenHex(t *testing.T) {
	a := vendorDirID("/project/vendor")
	b := vendorDirID("/project/vendor")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	other := vendorDirID("/other/vendor")
	assert.NotEqual(t, a, other)
}

func TestFileIdentifierIsThirtyTwoHex(t *testing.T) {
	id := fileIdentifier("/some/pkg/helpers.php")
	assert.Len(t, id, 32)
}

func TestRelativeToVendorNormalizesSlashesAndLeadingSlash(t *testing.T) {
	rel := relativeToVendor("/proj/vendor", "/proj/vendor/psr/log/src/LoggerInterface.php")
	assert.Equal(t, "/psr/log/src/LoggerInterface.php", rel)
}

func TestContentFingerprintIgnoresWhitespaceChanges(t *testing.T) {
	a := contentFingerprint([]byte("<?php\nclass Foo {}\n"))
	b := contentFingerprint([]byte("<?php\n\n\nclass   Foo   {}\n\n"))
	assert.Equal(t, a, b)

	c := contentFingerprint([]byte("<?php\nclass Bar {}\n"))
	assert.NotEqual(t, a, c)
}

func writePHP(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanFileExtractsNamespacedClass(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Greeter.php")
	writePHP(t, path, "<?php\nnamespace Acme\\Hello;\n\nclass Greeter\n{\n    public function greet() {}\n}\n")

	result, err := scanFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{`Acme\Hello\Greeter`}, result.classes)
	assert.NotEmpty(t, result.fingerprint)
}

func TestScanFileExtractsInterfaceAndTraitAndBracketedNamespace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Multi.php")
	writePHP(t, path, `<?php
namespace Acme\Multi {
    interface Speaks
    {
    }

    trait Loud
    {
    }
}
`)

	result, err := scanFile(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{`Acme\Multi\Speaks`, `Acme\Multi\Loud`}, result.classes)
}

func TestScanFileReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Broken.php")
	writePHP(t, path, "<?php\nclass {{{ not valid php")

	_, err := scanFile(path)
	assert.Error(t, err)
}

func TestScanCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "scan-cache.bin")

	c := newScanCache()
	now := time.Unix(1700000000, 0)
	c.put("/psr/log/src/Logger.php", now, "fp1", []string{`Psr\Log\Logger`})
	require.NoError(t, c.save(cachePath))

	loaded := loadScanCache(cachePath)
	entry, ok := loaded.unchanged("/psr/log/src/Logger.php", now)
	require.True(t, ok)
	assert.Equal(t, []string{`Psr\Log\Logger`}, entry.Classes)
	assert.Equal(t, "fp1", entry.Fingerprint)
}

func TestScanCacheDetectsChangedMtime(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "scan-cache.bin")

	c := newScanCache()
	now := time.Unix(1700000000, 0)
	c.put("/a.php", now, "fp", []string{"A"})
	require.NoError(t, c.save(cachePath))

	loaded := loadScanCache(cachePath)
	_, ok := loaded.unchanged("/a.php", now.Add(time.Second))
	assert.False(t, ok)
}

func TestLoadScanCacheMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	c := loadScanCache(filepath.Join(dir, "does-not-exist"))
	assert.Empty(t, c.Entries)
}

func TestLoadScanCacheRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.bin")
	require.NoError(t, os.WriteFile(path, []byte("NOTLBRTAUTLsuffixjunk"), 0o644))

	c := loadScanCache(path)
	assert.Empty(t, c.Entries)
}

func buildPackage(t *testing.T, root, name string, autoload manifest.Autoload) PackageAutoload {
	t.Helper()
	installPath := filepath.Join(root, "vendor", name)
	require.NoError(t, os.MkdirAll(installPath, 0o755))
	return PackageAutoload{Name: name, InstallPath: installPath, Autoload: autoload}
}

func TestMergeBasicTablesBuildsVendorRelativePaths(t *testing.T) {
	root := t.TempDir()
	vendorDir := filepath.Join(root, "vendor")

	pkg := buildPackage(t, root, "acme/greeter", manifest.Autoload{
		PSR4:  map[string]manifest.StringOrSlice{`Acme\Greeter\`: {"src/"}},
		Files: []string{"bootstrap.php"},
	})

	in := Input{VendorDir: vendorDir, Packages: []PackageAutoload{pkg}}
	m := mergeBasicTables(in)

	require.Contains(t, m.psr4, `Acme\Greeter\`)
	assert.Equal(t, []string{"/acme/greeter/src"}, m.psr4[`Acme\Greeter\`])

	require.Len(t, m.files, 1)
	assert.Equal(t, "/acme/greeter/bootstrap.php", m.files[0].path)
	assert.Len(t, m.files[0].id, 32)
}

func TestBuildClassmapScansAllEntries(t *testing.T) {
	root := t.TempDir()
	vendorDir := filepath.Join(root, "vendor")

	pkg := buildPackage(t, root, "acme/greeter", manifest.Autoload{
		PSR4: map[string]manifest.StringOrSlice{`Acme\Greeter\`: {"src/"}},
	})
	writePHP(t, filepath.Join(pkg.InstallPath, "src", "Zebra.php"), "<?php\nnamespace Acme\\Greeter;\nclass Zebra {}\n")
	writePHP(t, filepath.Join(pkg.InstallPath, "src", "Apple.php"), "<?php\nnamespace Acme\\Greeter;\nclass Apple {}\n")

	in := Input{VendorDir: vendorDir, Packages: []PackageAutoload{pkg}, Level: Optimized}
	cache := newScanCache()
	entries, err := buildClassmap(in, cache, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	names := []string{entries[0].class, entries[1].class}
	assert.Contains(t, names, `Acme\Greeter\Zebra`)
	assert.Contains(t, names, `Acme\Greeter\Apple`)
}

func TestBuildClassmapSkipsUnparsableFileWithWarningNotError(t *testing.T) {
	root := t.TempDir()
	vendorDir := filepath.Join(root, "vendor")

	pkg := buildPackage(t, root, "acme/broken", manifest.Autoload{
		PSR4: map[string]manifest.StringOrSlice{`Acme\Broken\`: {"src/"}},
	})
	writePHP(t, filepath.Join(pkg.InstallPath, "src", "Bad.php"), "<?php\nclass {{{")

	in := Input{VendorDir: vendorDir, Packages: []PackageAutoload{pkg}, Level: Optimized}
	entries, err := buildClassmap(in, newScanCache(), nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateWritesComposerCompatibleFileSet(t *testing.T) {
	root := t.TempDir()
	vendorDir := filepath.Join(root, "vendor")

	pkg := buildPackage(t, root, "acme/greeter", manifest.Autoload{
		PSR4:  map[string]manifest.StringOrSlice{`Acme\Greeter\`: {"src/"}},
		Files: []string{"bootstrap.php"},
	})
	writePHP(t, filepath.Join(pkg.InstallPath, "src", "Greeter.php"), "<?php\nnamespace Acme\\Greeter;\nclass Greeter {}\n")
	writePHP(t, filepath.Join(pkg.InstallPath, "bootstrap.php"), "<?php\n// bootstrap\n")

	in := Input{VendorDir: vendorDir, Packages: []PackageAutoload{pkg}, Level: Optimized}
	cachePath := filepath.Join(root, "autoload-cache.bin")

	err := Generate(in, cachePath, nil)
	require.NoError(t, err)

	for _, rel := range []string{
		"autoload.php",
		filepath.Join("composer", "ClassLoader.php"),
		filepath.Join("composer", "autoload_real.php"),
		filepath.Join("composer", "autoload_static.php"),
		filepath.Join("composer", "autoload_psr4.php"),
		filepath.Join("composer", "autoload_classmap.php"),
		filepath.Join("composer", "autoload_files.php"),
		filepath.Join("composer", "autoload_namespaces.php"),
	} {
		data, err := os.ReadFile(filepath.Join(vendorDir, rel))
		require.NoError(t, err, "expected %s to be written", rel)
		assert.NotEmpty(t, data)
	}

	classmap, err := os.ReadFile(filepath.Join(vendorDir, "composer", "autoload_classmap.php"))
	require.NoError(t, err)
	assert.Contains(t, string(classmap), `Acme\\Greeter\\Greeter`)

	files, err := os.ReadFile(filepath.Join(vendorDir, "composer", "autoload_files.php"))
	require.NoError(t, err)
	assert.Contains(t, string(files), "/acme/greeter/bootstrap.php")

	_, err = os.Stat(cachePath)
	assert.NoError(t, err, "expected scan cache to be persisted at Optimized level")
}

func TestGenerateNoneLevelSkipsClassmapScan(t *testing.T) {
	root := t.TempDir()
	vendorDir := filepath.Join(root, "vendor")

	pkg := buildPackage(t, root, "acme/greeter", manifest.Autoload{
		PSR4: map[string]manifest.StringOrSlice{`Acme\Greeter\`: {"src/"}},
	})
	writePHP(t, filepath.Join(pkg.InstallPath, "src", "Greeter.php"), "<?php\nnamespace Acme\\Greeter;\nclass Greeter {}\n")

	in := Input{VendorDir: vendorDir, Packages: []PackageAutoload{pkg}, Level: None}
	err := Generate(in, filepath.Join(root, "cache.bin"), nil)
	require.NoError(t, err)

	classmap, err := os.ReadFile(filepath.Join(vendorDir, "composer", "autoload_classmap.php"))
	require.NoError(t, err)
	assert.NotContains(t, string(classmap), `Acme\\Greeter\\Greeter`)
}

func TestGroupByFirstCharGroupsNamespaces(t *testing.T) {
	groups := groupByFirstChar([]string{`Acme\Foo\`, `Acme\Bar\`, `Zeta\`})
	require.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].char)
	assert.ElementsMatch(t, []string{`Acme\Foo\`, `Acme\Bar\`}, groups[0].namespaces)
	assert.Equal(t, "Z", groups[1].char)
}

func TestPHPStringEscapesBackslashAndQuote(t *testing.T) {
	assert.Equal(t, `'Acme\\Foo'`, phpString(`Acme\Foo`))
	assert.Equal(t, `'It\'s'`, phpString(`It's`))
}
