// Package manifest parses composer.json, the project manifest consumed by
// the resolver (spec §6).
package manifest

import (
	"encoding/json"

	"github.com/libretto-pm/libretto/internal/libretr"
)

// StringOrSlice accepts a JSON value that is either a bare string or an
// array of strings — the shape Composer uses throughout autoload maps.
type StringOrSlice []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringOrSlice) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrSlice{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = StringOrSlice(many)
	return nil
}

// Autoload is one autoload (or autoload-dev) block.
type Autoload struct {
	PSR4                map[string]StringOrSlice `json:"psr-4,omitempty"`
	PSR0                map[string]StringOrSlice `json:"psr-0,omitempty"`
	Classmap            []string                 `json:"classmap,omitempty"`
	Files               []string                 `json:"files,omitempty"`
	ExcludeFromClassmap []string                 `json:"exclude-from-classmap,omitempty"`
}

// Config is the `config` block of composer.json, limited to the fields the
// resolver and platform layer consume.
type Config struct {
	Platform map[string]string `json:"platform,omitempty"`
}

// Extra is the `extra` block, limited to installer-paths (used by the
// autoloader's vendor-directory layout in more elaborate installs; carried
// here because spec §6 names it explicitly as an optional manifest field).
type Extra struct {
	InstallerPaths map[string][]string `json:"installer-paths,omitempty"`
}

// Manifest is a parsed composer.json.
type Manifest struct {
	Name             string            `json:"name,omitempty"`
	Require          map[string]string `json:"require,omitempty"`
	RequireDev       map[string]string `json:"require-dev,omitempty"`
	Autoload         Autoload          `json:"autoload,omitempty"`
	AutoloadDev      Autoload          `json:"autoload-dev,omitempty"`
	Repositories     []json.RawMessage `json:"repositories,omitempty"`
	MinimumStability string            `json:"minimum-stability,omitempty"`
	PreferStable     bool              `json:"prefer-stable,omitempty"`
	Config           Config            `json:"config,omitempty"`
	Scripts          map[string]json.RawMessage `json:"scripts,omitempty"`
	Extra            Extra             `json:"extra,omitempty"`
}

// Parse decodes composer.json bytes into a Manifest. A malformed document
// produces an *libretr.Error tagged InvalidManifest rather than a bare JSON
// error, per spec §7.
func Parse(path string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, libretr.Wrap(libretr.CodeInvalidManifest, err, "invalid composer.json").WithPath(path)
	}
	if m.Require == nil {
		m.Require = map[string]string{}
	}
	if m.RequireDev == nil {
		m.RequireDev = map[string]string{}
	}
	if m.MinimumStability == "" {
		m.MinimumStability = "stable"
	}
	return &m, nil
}
