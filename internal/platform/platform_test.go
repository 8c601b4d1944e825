package platform

import (
	"testing"

	"github.com/libretto-pm/libretto/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPlatformPackage(t *testing.T) {
	assert.True(t, IsPlatformPackage("php"))
	assert.True(t, IsPlatformPackage("hhvm"))
	assert.True(t, IsPlatformPackage("ext-json"))
	assert.True(t, IsPlatformPackage("lib-curl"))
	assert.True(t, IsPlatformPackage("composer-runtime-api"))
	assert.False(t, IsPlatformPackage("psr/log"))
}

func TestDescriptionSatisfies(t *testing.T) {
	d := NewDescription(map[string]string{"php": "8.2.10", "ext-json": "1.0.0"})
	c, ok := version.ParseConstraint("^8.1")
	require.True(t, ok)
	assert.True(t, d.Satisfies("php", c))

	c2, ok := version.ParseConstraint("^7.4")
	require.True(t, ok)
	assert.False(t, d.Satisfies("php", c2))
}

func TestDescriptionUnknownPackageNotSatisfied(t *testing.T) {
	d := NewDescription(map[string]string{"php": "8.2.0"})
	c, _ := version.ParseConstraint("*")
	assert.False(t, d.Satisfies("ext-redis", c))
}

func TestOverrideRemovesWithEmptyString(t *testing.T) {
	d := NewDescription(map[string]string{"ext-xdebug": "3.0.0"})
	d.Override(map[string]string{"ext-xdebug": ""})
	_, ok := d.Version("ext-xdebug")
	assert.False(t, ok)
}

func TestIgnoreWildcard(t *testing.T) {
	d := NewDescription(nil)
	d.Ignore("ext-*")
	c, _ := version.ParseConstraint("*")
	assert.True(t, d.Satisfies("ext-anything", c))
}
