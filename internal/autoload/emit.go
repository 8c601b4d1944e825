package autoload

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/libretto-pm/libretto/internal/libretr"
	"github.com/libretto-pm/libretto/internal/lockfile"
	"github.com/sirupsen/logrus"
)

// mergeBasicTables combines every package's PSR-4, PSR-0, and files
// autoload entries into vendor-relative form. The classmap is built
// separately (buildClassmap) since only it requires filesystem scanning.
func mergeBasicTables(in Input) *mergedTables {
	m := newMergedTables()

	for _, pkg := range in.Packages {
		for ns, dirs := range pkg.Autoload.PSR4 {
			for _, dir := range dirs {
				abs := filepath.Join(pkg.InstallPath, dir)
				m.psr4[ns] = append(m.psr4[ns], relativeToVendor(in.VendorDir, abs))
			}
		}
		for ns, dirs := range pkg.Autoload.PSR0 {
			for _, dir := range dirs {
				abs := filepath.Join(pkg.InstallPath, dir)
				m.psr0[ns] = append(m.psr0[ns], relativeToVendor(in.VendorDir, abs))
			}
		}
		for _, file := range pkg.Autoload.Files {
			abs := filepath.Join(pkg.InstallPath, file)
			rel := relativeToVendor(in.VendorDir, abs)
			m.files = append(m.files, fileEntry{id: fileIdentifier(rel), path: rel})
		}
	}

	m.sortFiles()
	return m
}

// Generate produces the full Composer-compatible autoload file set under
// in.VendorDir/composer. Per-file parse errors are logged and the file is
// skipped; any write failure aborts with an Io-tagged error. log may be
// nil, in which case warnings go to the standard logger.
func Generate(in Input, cachePath string, log *logrus.Entry) error {
	m := mergeBasicTables(in)

	cache := loadScanCache(cachePath)
	if in.Level == Optimized || in.Level == Authoritative {
		entries, err := buildClassmap(in, cache, log)
		if err != nil {
			return libretr.Wrap(libretr.CodeIO, err, "scanning autoload directories")
		}
		m.classmap = entries
		m.sortClassmap()
		if err := cache.save(cachePath); err != nil {
			return err
		}
	}

	loaderID := vendorDirID(in.VendorDir)
	composerDir := filepath.Join(in.VendorDir, "composer")

	files := map[string]string{
		filepath.Join(in.VendorDir, "autoload.php"):          fmt.Sprintf(autoloaderInitTemplate, loaderID),
		filepath.Join(composerDir, "ClassLoader.php"):         classLoaderTemplate,
		filepath.Join(composerDir, "autoload_namespaces.php"): renderNamespacesFile(m),
		filepath.Join(composerDir, "autoload_psr4.php"):       renderPSR4File(m),
		filepath.Join(composerDir, "autoload_classmap.php"):   renderClassmapFile(m),
		filepath.Join(composerDir, "autoload_files.php"):      renderFilesFile(m),
		filepath.Join(composerDir, "autoload_static.php"):     renderStaticFile(m, loaderID, in.Level == Authoritative),
		filepath.Join(composerDir, "autoload_real.php"):       renderRealFile(loaderID),
	}

	for path, content := range files {
		if err := lockfile.WriteFile(path, []byte(content)); err != nil {
			return libretr.Wrap(libretr.CodeIO, err, "writing autoload file").WithPath(path)
		}
	}

	return nil
}

func renderNamespacesFile(m *mergedTables) string {
	var b strings.Builder
	b.WriteString("<?php\n\n// autoload_namespaces.php is generated. Do not edit.\n\nreturn array(\n")
	for _, ns := range m.sortedNamespaces(m.psr0) {
		dirs := m.psr0[ns]
		b.WriteString(fmt.Sprintf("    %s => array(%s),\n", phpString(ns), phpStringArray(dirsWithVendorPrefix(dirs))))
	}
	b.WriteString(");\n")
	return b.String()
}

func renderPSR4File(m *mergedTables) string {
	var b strings.Builder
	b.WriteString("<?php\n\n// autoload_psr4.php is generated. Do not edit.\n\nreturn array(\n")
	for _, ns := range m.sortedNamespaces(m.psr4) {
		dirs := m.psr4[ns]
		b.WriteString(fmt.Sprintf("    %s => array(%s),\n", phpString(ns), phpStringArray(dirsWithVendorPrefix(dirs))))
	}
	b.WriteString(");\n")
	return b.String()
}

func renderClassmapFile(m *mergedTables) string {
	var b strings.Builder
	b.WriteString("<?php\n\n// autoload_classmap.php is generated. Do not edit.\n\nreturn array(\n")
	for _, entry := range m.classmap {
		b.WriteString(fmt.Sprintf("    %s => $vendorDir . %s,\n", phpString(entry.class), phpString(entry.path)))
	}
	b.WriteString(");\n")
	return b.String()
}

func renderFilesFile(m *mergedTables) string {
	var b strings.Builder
	b.WriteString("<?php\n\n// autoload_files.php is generated. Do not edit.\n\nreturn array(\n")
	for _, f := range m.files {
		b.WriteString(fmt.Sprintf("    %s => $vendorDir . %s,\n", phpString(f.id), phpString(f.path)))
	}
	b.WriteString(");\n")
	return b.String()
}

// renderStaticFile emits autoload_static.php: the same tables as the
// individual files, grouped under one class so autoload_real.php's
// registration loop has a single source of truth, matching the shape of
// Composer's optimized output.
func renderStaticFile(m *mergedTables, vendorDirID string, authoritative bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<?php\n\n// autoload_static.php is generated. Do not edit.\n\nnamespace Composer\\Autoload;\n\nclass ComposerStaticInit%s\n{\n", vendorDirID)

	fmt.Fprintf(&b, "    public static $files = array(\n")
	for _, f := range m.files {
		fmt.Fprintf(&b, "        %s => dirname(__DIR__) . %s,\n", phpString(f.id), phpString(f.path))
	}
	b.WriteString("    );\n\n")

	fmt.Fprintf(&b, "    public static $prefixLengthsPsr4 = array(\n")
	for _, group := range groupByFirstChar(m.sortedNamespaces(m.psr4)) {
		fmt.Fprintf(&b, "        %s => array(\n", phpString(group.char))
		for _, ns := range group.namespaces {
			fmt.Fprintf(&b, "            %s => %d,\n", phpString(ns), len(ns))
		}
		b.WriteString("        ),\n")
	}
	b.WriteString("    );\n\n")

	fmt.Fprintf(&b, "    public static $prefixDirsPsr4 = array(\n")
	for _, ns := range m.sortedNamespaces(m.psr4) {
		fmt.Fprintf(&b, "        %s => array(%s),\n", phpString(ns), phpStringArray(dirsWithDirPrefix(m.psr4[ns])))
	}
	b.WriteString("    );\n\n")

	fmt.Fprintf(&b, "    public static $prefixesPsr0 = array(\n")
	for _, group := range groupByFirstChar(m.sortedNamespaces(m.psr0)) {
		fmt.Fprintf(&b, "        %s => array(\n", phpString(group.char))
		for _, ns := range group.namespaces {
			fmt.Fprintf(&b, "            %s => array(%s),\n", phpString(ns), phpStringArray(dirsWithDirPrefix(m.psr0[ns])))
		}
		b.WriteString("        ),\n")
	}
	b.WriteString("    );\n\n")

	fmt.Fprintf(&b, "    public static $classMap = array(\n")
	for _, entry := range m.classmap {
		fmt.Fprintf(&b, "        %s => dirname(__DIR__) . %s,\n", phpString(entry.class), phpString(entry.path))
	}
	b.WriteString("    );\n\n")

	b.WriteString("    public static function getInitializer(ClassLoader $loader)\n    {\n        return \\Closure::bind(function () use ($loader) {\n")
	fmt.Fprintf(&b, "            $loader->prefixLengthsPsr4 = ComposerStaticInit%s::$prefixLengthsPsr4;\n", vendorDirID)
	fmt.Fprintf(&b, "            $loader->prefixDirsPsr4 = ComposerStaticInit%s::$prefixDirsPsr4;\n", vendorDirID)
	fmt.Fprintf(&b, "            $loader->prefixesPsr0 = ComposerStaticInit%s::$prefixesPsr0;\n", vendorDirID)
	fmt.Fprintf(&b, "            $loader->classMap = ComposerStaticInit%s::$classMap;\n", vendorDirID)
	if authoritative {
		b.WriteString("            $loader->classMapAuthoritative = true;\n")
	}
	b.WriteString("        }, null, ClassLoader::class);\n    }\n}\n")

	return b.String()
}

func renderRealFile(vendorDirID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?php

// autoload_real.php is generated. Do not edit.

class ComposerAutoloaderInit%[1]s
{
    private static $loader;

    public static function loadClassLoader($class)
    {
        if ('Composer\Autoload\ClassLoader' === $class) {
            require __DIR__ . '/ClassLoader.php';
        }
    }

    public static function getLoader()
    {
        if (null !== self::$loader) {
            return self::$loader;
        }

        spl_autoload_register(array('ComposerAutoloaderInit%[1]s', 'loadClassLoader'), true, true);
        self::$loader = $loader = new \Composer\Autoload\ClassLoader(dirname(__DIR__));
        spl_autoload_unregister(array('ComposerAutoloaderInit%[1]s', 'loadClassLoader'));

        require __DIR__ . '/autoload_static.php';
        call_user_func(\Composer\Autoload\ComposerStaticInit%[1]s::getInitializer($loader));

        $loader->register(true);

        return $loader;
    }
}
`, vendorDirID)
	return b.String()
}

type charGroup struct {
	char       string
	namespaces []string
}

func groupByFirstChar(namespaces []string) []charGroup {
	byChar := map[string][]string{}
	var order []string
	for _, ns := range namespaces {
		if ns == "" {
			continue
		}
		c := ns[:1]
		if _, ok := byChar[c]; !ok {
			order = append(order, c)
		}
		byChar[c] = append(byChar[c], ns)
	}
	sort.Strings(order)
	groups := make([]charGroup, 0, len(order))
	for _, c := range order {
		groups = append(groups, charGroup{char: c, namespaces: byChar[c]})
	}
	return groups
}

func dirsWithVendorPrefix(dirs []string) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = "$vendorDir . " + phpString(d)
	}
	return out
}

func dirsWithDirPrefix(dirs []string) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = "dirname(__DIR__) . " + phpString(d)
	}
	return out
}

func phpString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func phpStringArray(items []string) string {
	return strings.Join(items, ", ")
}
