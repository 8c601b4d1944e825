package fetcher

import (
	"encoding/json"
	"fmt"

	"github.com/libretto-pm/libretto/internal/index"
	"github.com/libretto-pm/libretto/internal/version"
)

// wireVersion mirrors one entry of Composer's v2 metadata
// ("p2/<name>.json") package-version array.
type wireVersion struct {
	Name       string            `json:"name"`
	Version    string            `json:"version"`
	Require    map[string]string `json:"require,omitempty"`
	RequireDev map[string]string `json:"require-dev,omitempty"`
	Replace    map[string]string `json:"replace,omitempty"`
	Provide    map[string]string `json:"provide,omitempty"`
	Conflict   map[string]string `json:"conflict,omitempty"`
	Type       string            `json:"type,omitempty"`
	Dist       struct {
		Type   string `json:"type,omitempty"`
		URL    string `json:"url,omitempty"`
		Shasum string `json:"shasum,omitempty"`
	} `json:"dist,omitempty"`
	Source struct {
		Type      string `json:"type,omitempty"`
		URL       string `json:"url,omitempty"`
		Reference string `json:"reference,omitempty"`
	} `json:"source,omitempty"`

	// Abandoned is either a bool (true, no replacement named) or a string
	// naming the replacement package, per Composer's own composer.json
	// schema; json.RawMessage defers the choice to decodeAbandoned.
	Abandoned json.RawMessage `json:"abandoned,omitempty"`
}

// decodeAbandoned turns the tolerant abandoned field into the single
// string index.PackageVersion.Abandoned expects: "" (not abandoned),
// "true" (abandoned, no replacement named), or the replacement package
// name.
func decodeAbandoned(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "true"
		}
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

type wireDocument struct {
	Packages map[string][]wireVersion `json:"packages"`
}

// parseMetadata decodes a p2-format metadata document for name into a
// PackageEntry. Versions with an unparseable version string are skipped
// and logged, rather than failing the whole document — one bad release
// should not make the rest of a package's history unavailable.
func (c *Client) parseMetadata(name string, body []byte) (*index.PackageEntry, error) {
	var doc wireDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing metadata for %s: %w", name, err)
	}

	wireVersions, ok := doc.Packages[name]
	if !ok || len(wireVersions) == 0 {
		return nil, nil
	}

	versions := make([]*index.PackageVersion, 0, len(wireVersions))
	for _, wv := range wireVersions {
		v, ok := version.Parse(wv.Version)
		if !ok {
			c.log.WithField("package", name).WithField("version", wv.Version).
				Warn("metadata fetcher: skipping unparseable version")
			continue
		}
		versions = append(versions, &index.PackageVersion{
			Name:            name,
			Version:         v,
			Dependencies:    wv.Require,
			DevDependencies: wv.RequireDev,
			Replaces:        wv.Replace,
			Provides:        wv.Provide,
			Conflicts:       wv.Conflict,
			Type:            wv.Type,
			Dist: index.Dist{
				Type:   wv.Dist.Type,
				URL:    wv.Dist.URL,
				Shasum: wv.Dist.Shasum,
			},
			Source: index.Source{
				Type:      wv.Source.Type,
				URL:       wv.Source.URL,
				Reference: wv.Source.Reference,
			},
			Abandoned: decodeAbandoned(wv.Abandoned),
		})
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return index.NewPackageEntry(name, versions), nil
}
