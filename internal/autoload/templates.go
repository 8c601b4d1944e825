package autoload

// classLoaderTemplate is the loader implementation emitted verbatim to
// vendor/composer/ClassLoader.php. Composer's real ClassLoader.php is
// fixed, proprietary text this pack does not carry a copy of, so this is
// a from-scratch, functionally equivalent loader: it reads the same
// generated data tables (autoload_psr4.php, autoload_classmap.php, etc.)
// and resolves classes the same way — classmap lookup first, then (unless
// the classmap is authoritative) a PSR-4 prefix probe, then a PSR-0 probe.
const classLoaderTemplate = `<?php

// autoload_real.php and this file are generated. Do not edit.

namespace Composer\Autoload;

class ClassLoader
{
    private $vendorDir;

    private $prefixLengthsPsr4 = array();
    private $prefixDirsPsr4 = array();
    private $prefixesPsr0 = array();
    private $classMap = array();
    private $classMapAuthoritative = false;
    private $files = array();

    public function __construct($vendorDir = null)
    {
        $this->vendorDir = $vendorDir;
    }

    public function getPrefixesPsr4()
    {
        return $this->prefixDirsPsr4;
    }

    public function getPrefixes()
    {
        return $this->prefixesPsr0;
    }

    public function getClassMap()
    {
        return $this->classMap;
    }

    public function addClassMap(array $classMap)
    {
        if ($this->classMap) {
            $this->classMap = array_merge($this->classMap, $classMap);
        } else {
            $this->classMap = $classMap;
        }
    }

    public function setPsr4($prefix, $paths)
    {
        $length = strlen($prefix);
        if ('\\' !== substr($prefix, -1)) {
            throw new \InvalidArgumentException('A non-empty PSR-4 prefix must end with a namespace separator.');
        }
        $this->prefixLengthsPsr4[$prefix[0]][$prefix] = $length;
        $this->prefixDirsPsr4[$prefix] = (array) $paths;
    }

    public function setPsr0($prefix, $paths)
    {
        $this->prefixesPsr0[$prefix[0]][$prefix] = (array) $paths;
    }

    public function setClassMapAuthoritative($authoritative)
    {
        $this->classMapAuthoritative = $authoritative;
    }

    public function isClassMapAuthoritative()
    {
        return $this->classMapAuthoritative;
    }

    public function register($prepend = false)
    {
        spl_autoload_register(array($this, 'loadClass'), true, $prepend);
    }

    public function unregister()
    {
        spl_autoload_unregister(array($this, 'loadClass'));
    }

    public function loadClass($class)
    {
        if ($file = $this->findFile($class)) {
            includeFile($file);
            return true;
        }
        return null;
    }

    public function findFile($class)
    {
        if (isset($this->classMap[$class])) {
            return $this->classMap[$class];
        }
        if ($this->classMapAuthoritative) {
            return false;
        }

        $file = $this->findFilePsr4($class);
        if ($file !== null) {
            return $file;
        }

        return $this->findFilePsr0($class);
    }

    private function findFilePsr4($class)
    {
        $first = $class[0];
        if (!isset($this->prefixLengthsPsr4[$first])) {
            return null;
        }
        foreach ($this->prefixLengthsPsr4[$first] as $prefix => $length) {
            if (0 === strpos($class, $prefix)) {
                foreach ($this->prefixDirsPsr4[$prefix] as $dir) {
                    $path = $dir . '/' . strtr(substr($class, $length), '\\', '/') . '.php';
                    if (file_exists($path)) {
                        return $path;
                    }
                }
            }
        }
        return null;
    }

    private function findFilePsr0($class)
    {
        $first = $class[0];
        if (!isset($this->prefixesPsr0[$first])) {
            return null;
        }
        foreach ($this->prefixesPsr0[$first] as $prefix => $dirs) {
            if (0 === strpos($class, $prefix)) {
                foreach ($dirs as $dir) {
                    $path = $dir . '/' . strtr($class, '\\_', '//') . '.php';
                    if (file_exists($path)) {
                        return $path;
                    }
                }
            }
        }
        return null;
    }
}

function includeFile($file)
{
    include $file;
}
`

// autoloaderInitTemplate formats vendor/autoload.php, the thin delegator
// that boots a per-vendor-dir ClassLoader singleton.
const autoloaderInitTemplate = `<?php

// autoload.php is generated. Do not edit.

if (!defined('COMPOSER_AUTOLOAD_DELEGATE_%[1]s')) {
    define('COMPOSER_AUTOLOAD_DELEGATE_%[1]s', true);

    require_once __DIR__ . '/composer/autoload_real.php';

    return ComposerAutoloaderInit%[1]s::getLoader();
}
`
