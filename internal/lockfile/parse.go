package lockfile

import (
	"encoding/json"

	"github.com/libretto-pm/libretto/internal/libretr"
)

// wireLock mirrors composer.lock's JSON shape so encoding/json can decode
// it; Parse then maps this into the package's own Lock/Package types.
// Serialize never uses this struct (it writes canonical bytes by hand),
// but reading an existing lock file back — for drift checks and
// revalidation on reinstall — only needs correctness, not byte order.
type wireLock struct {
	Readme           []string               `json:"_readme,omitempty"`
	ContentHash      string                 `json:"content-hash"`
	Packages         []wirePackage          `json:"packages"`
	PackagesDev      []wirePackage          `json:"packages-dev"`
	Aliases          []wireAlias            `json:"aliases,omitempty"`
	MinimumStability string                 `json:"minimum-stability"`
	StabilityFlags   map[string]int         `json:"stability-flags,omitempty"`
	PreferStable     bool                   `json:"prefer-stable"`
	PreferLowest     bool                   `json:"prefer-lowest"`
	Platform         map[string]string      `json:"platform,omitempty"`
	PlatformDev      map[string]string      `json:"platform-dev,omitempty"`
	PluginAPIVersion string                 `json:"plugin-api-version"`
}

type wirePackage struct {
	Name            string              `json:"name"`
	Version         string              `json:"version"`
	Source          *wireSource         `json:"source,omitempty"`
	Dist            *wireDist           `json:"dist,omitempty"`
	Require         map[string]string   `json:"require,omitempty"`
	RequireDev      map[string]string   `json:"require-dev,omitempty"`
	Type            string              `json:"type,omitempty"`
	Autoload        *wireAutoload       `json:"autoload,omitempty"`
	NotificationURL string              `json:"notification-url,omitempty"`
	License         []string            `json:"license,omitempty"`
	Authors         []wireAuthor        `json:"authors,omitempty"`
	Description     string              `json:"description,omitempty"`
	Homepage        string              `json:"homepage,omitempty"`
	Keywords        []string            `json:"keywords,omitempty"`
	Time            string              `json:"time,omitempty"`
	Abandoned       json.RawMessage     `json:"abandoned,omitempty"`
}

type wireSource struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Reference string `json:"reference"`
}

type wireDist struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Reference string `json:"reference,omitempty"`
	Shasum    string `json:"shasum"`
}

type wireAuthor struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Homepage string `json:"homepage,omitempty"`
	Role     string `json:"role,omitempty"`
}

type wireAutoload struct {
	PSR4                map[string]json.RawMessage `json:"psr-4,omitempty"`
	PSR0                map[string]json.RawMessage `json:"psr-0,omitempty"`
	Classmap            []string                   `json:"classmap,omitempty"`
	Files               []string                   `json:"files,omitempty"`
	ExcludeFromClassmap []string                   `json:"exclude-from-classmap,omitempty"`
}

type wireAlias struct {
	Package         string `json:"package"`
	Version         string `json:"version"`
	Alias           string `json:"alias"`
	AliasNormalized string `json:"alias_normalized"`
}

// Parse decodes composer.lock bytes into a Lock. A malformed document
// produces an *libretr.Error tagged Io rather than a bare JSON error,
// matching the rest of the package's error-handling convention.
func Parse(data []byte) (*Lock, error) {
	var w wireLock
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, libretr.Wrap(libretr.CodeIO, err, "parsing composer.lock")
	}

	l := &Lock{
		Readme:           w.Readme,
		ContentHash:      w.ContentHash,
		MinimumStability: w.MinimumStability,
		StabilityFlags:   w.StabilityFlags,
		PreferStable:     w.PreferStable,
		PreferLowest:     w.PreferLowest,
		Platform:         w.Platform,
		PlatformDev:      w.PlatformDev,
		PluginAPIVersion: w.PluginAPIVersion,
	}
	for _, p := range w.Packages {
		l.Packages = append(l.Packages, fromWirePackage(p))
	}
	for _, p := range w.PackagesDev {
		l.PackagesDev = append(l.PackagesDev, fromWirePackage(p))
	}
	for _, a := range w.Aliases {
		l.Aliases = append(l.Aliases, Alias{Package: a.Package, Version: a.Version, Alias: a.Alias, AliasNormalized: a.AliasNormalized})
	}

	return l, nil
}

func fromWirePackage(p wirePackage) Package {
	pkg := Package{
		Name:            p.Name,
		Version:         p.Version,
		Require:         p.Require,
		RequireDev:      p.RequireDev,
		Type:            p.Type,
		NotificationURL: p.NotificationURL,
		License:         p.License,
		Description:     p.Description,
		Homepage:        p.Homepage,
		Keywords:        p.Keywords,
		Time:            p.Time,
		Abandoned:       len(p.Abandoned) > 0 && string(p.Abandoned) != "false",
	}
	if p.Source != nil {
		pkg.Source = &Source{Type: p.Source.Type, URL: p.Source.URL, Reference: p.Source.Reference}
	}
	if p.Dist != nil {
		pkg.Dist = &Dist{Type: p.Dist.Type, URL: p.Dist.URL, Reference: p.Dist.Reference, Shasum: p.Dist.Shasum}
	}
	for _, a := range p.Authors {
		pkg.Authors = append(pkg.Authors, Author{Name: a.Name, Email: a.Email, Homepage: a.Homepage, Role: a.Role})
	}
	if p.Autoload != nil {
		pkg.Autoload = Autoload{
			Classmap: p.Autoload.Classmap,
			Files:    p.Autoload.Files,
		}
		pkg.Autoload.PSR4 = decodeStringOrArrayMap(p.Autoload.PSR4)
		pkg.Autoload.PSR0 = decodeStringOrArrayMap(p.Autoload.PSR0)
	}
	return pkg
}

// decodeStringOrArrayMap decodes a map whose values are either a bare
// JSON string or an array of strings, the same tolerant shape composer.json
// allows for autoload path entries.
func decodeStringOrArrayMap(raw map[string]json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		var single string
		if err := json.Unmarshal(v, &single); err == nil {
			out[k] = []string{single}
			continue
		}
		var many []string
		if err := json.Unmarshal(v, &many); err == nil {
			out[k] = many
		}
	}
	return out
}
