// Package testutil provides shared fixtures for tests across Libretto's
// packages: real-world-shaped composer.json documents, a sample
// composer.lock, PHP source snippets for the autoloader, and an in-memory
// index.PackageSource so resolver/index tests don't need a live HTTP
// server.
package testutil

import "fmt"

// EmptyComposerJSON is the minimal valid composer.json.
const EmptyComposerJSON = `{
	"name": "test/project",
	"description": "Test project",
	"type": "project",
	"require": {},
	"autoload": {}
}`

// SimpleComposerJSON has a handful of real-world dependencies.
const SimpleComposerJSON = `{
	"name": "test/simple-project",
	"description": "Simple test project",
	"type": "project",
	"require": {
		"php": ">=8.1",
		"monolog/monolog": "^3.0",
		"guzzlehttp/guzzle": "^7.0"
	},
	"require-dev": {
		"phpunit/phpunit": "^10.0"
	},
	"autoload": {
		"psr-4": {
			"App\\": "src/"
		}
	}
}`

// LaravelComposerJSON mirrors a Laravel application's manifest shape:
// many direct requirements, a dev block, and a post-install script map.
const LaravelComposerJSON = `{
	"name": "laravel/laravel",
	"type": "project",
	"description": "The Laravel Framework.",
	"require": {
		"php": "^8.1",
		"laravel/framework": "^10.10",
		"laravel/sanctum": "^3.2",
		"laravel/tinker": "^2.8",
		"guzzlehttp/guzzle": "^7.2"
	},
	"require-dev": {
		"fakerphp/faker": "^1.9.1",
		"laravel/pint": "^1.0",
		"mockery/mockery": "^1.4.4",
		"phpunit/phpunit": "^10.1"
	},
	"autoload": {
		"psr-4": {
			"App\\": "app/",
			"Database\\Factories\\": "database/factories/",
			"Database\\Seeders\\": "database/seeders/"
		}
	},
	"autoload-dev": {
		"psr-4": {
			"Tests\\": "tests/"
		}
	},
	"minimum-stability": "stable",
	"prefer-stable": true
}`

// ComplexConstraintsComposerJSON exercises every constraint syntax the
// version package must parse: caret, tilde, exact, range, OR, wildcard,
// dev branch, explicit stability, and branch alias.
const ComplexConstraintsComposerJSON = `{
	"name": "test/complex-constraints",
	"type": "project",
	"require": {
		"php": ">=7.4 <8.3",
		"package/caret": "^1.2.3",
		"package/tilde": "~1.2.3",
		"package/exact": "1.2.3",
		"package/range": ">=1.0 <2.0",
		"package/or": "^1.0 || ^2.0",
		"package/wildcard": "1.2.*",
		"package/dev": "dev-main",
		"package/stability": "1.0@beta",
		"package/branch-alias": "dev-main as 2.0.x-dev"
	}
}`

// AllAutoloadTypesComposerJSON exercises every autoload mapping kind the
// autoloader generator must emit: psr-4, psr-0, classmap, and files,
// including one-to-many PSR mappings.
const AllAutoloadTypesComposerJSON = `{
	"name": "test/autoload-types",
	"type": "library",
	"autoload": {
		"psr-4": {
			"App\\": "src/",
			"App\\Sub\\": ["src/sub/", "src/other/"]
		},
		"psr-0": {
			"Legacy_": "legacy/",
			"OldStyle_": ["old/", "compat/"]
		},
		"classmap": ["lib/", "extra/SomeClass.php"],
		"files": ["src/helpers.php", "src/functions.php"]
	}
}`

// SimpleComposerLock is a small, valid composer.lock with one production
// and one dev package, matching the canonical field order lockfile.Serialize
// produces.
const SimpleComposerLock = `{
    "_readme": [
        "This file locks the dependencies of your project to a known state",
        "Read more about it at https://getcomposer.org/doc/01-basic-usage.md#installing-dependencies",
        "This file is @generated automatically"
    ],
    "content-hash": "a1b2c3d4e5f6789012345678901234567890abcd",
    "packages": [
        {
            "autoload": { "psr-4": { "Monolog\\": "src/Monolog" } },
            "description": "Sends your logs to files, sockets, inboxes, databases and various web services",
            "dist": { "type": "zip", "url": "https://api.github.com/repos/Seldaek/monolog/zipball/e2392369", "reference": "e2392369", "shasum": "" },
            "license": ["MIT"],
            "name": "monolog/monolog",
            "require": { "php": ">=8.1", "psr/log": "^2.0 || ^3.0" },
            "source": { "type": "git", "url": "https://github.com/Seldaek/monolog.git", "reference": "e2392369" },
            "type": "library",
            "version": "3.4.0"
        }
    ],
    "packages-dev": [
        {
            "name": "phpunit/phpunit",
            "require": { "php": ">=8.1" },
            "type": "library",
            "version": "10.3.0"
        }
    ],
    "aliases": [],
    "minimum-stability": "stable",
    "stability-flags": {},
    "prefer-stable": true,
    "prefer-lowest": false,
    "platform": { "php": ">=8.1" },
    "platform-dev": {},
    "plugin-api-version": "2.6.0"
}
`

// MetadataDocument renders a Composer v2 "p2" metadata document for name
// with two versions, the shape internal/fetcher expects to parse.
func MetadataDocument(name string) string {
	return fmt.Sprintf(`{"packages":{%q:[
		{"name":%q,"version":"2.0.0","require":{"php":">=8.0"}},
		{"name":%q,"version":"1.0.0","require":{"php":">=7.2"}}
	]}}`, name, name, name)
}

// PHPClassContent renders a minimal, syntactically valid PHP class file
// in namespace, for autoloader class-discovery tests.
func PHPClassContent(namespace, className string) string {
	return fmt.Sprintf(`<?php

declare(strict_types=1);

namespace %s;

class %s
{
    private string $name;

    public function __construct(string $name)
    {
        $this->name = $name;
    }

    public function getName(): string
    {
        return $this->name;
    }
}
`, namespace, className)
}

// PHPInterfaceContent renders a minimal PHP interface file.
func PHPInterfaceContent(namespace, interfaceName string) string {
	return fmt.Sprintf(`<?php

declare(strict_types=1);

namespace %s;

interface %s
{
    public function execute(): void;
}
`, namespace, interfaceName)
}

// PHPTraitContent renders a minimal PHP trait file.
func PHPTraitContent(namespace, traitName string) string {
	return fmt.Sprintf(`<?php

declare(strict_types=1);

namespace %s;

trait %s
{
    abstract protected function process(): void;
}
`, namespace, traitName)
}

// PHPEnumContent renders a minimal PHP 8.1+ backed enum file.
func PHPEnumContent(namespace, enumName string) string {
	return fmt.Sprintf(`<?php

declare(strict_types=1);

namespace %s;

enum %s: string
{
    case Pending = 'pending';
    case Active = 'active';
    case Completed = 'completed';
}
`, namespace, enumName)
}
