package main

import (
	"context"
	"fmt"

	"github.com/libretto-pm/libretto/internal/fetcher"
	"github.com/libretto-pm/libretto/internal/index"
	"github.com/libretto-pm/libretto/internal/lockfile"
	"github.com/libretto-pm/libretto/internal/manifest"
	"github.com/libretto-pm/libretto/internal/platform"
	"github.com/libretto-pm/libretto/internal/resolver"
	"github.com/sirupsen/logrus"
)

const defaultRepositoryURL = "https://repo.packagist.org"

// resolveProject runs the two-pass resolution spec §4.3.6 describes
// (production alone, then production+dev with production pinned) against
// the default Packagist-compatible repository, and returns both
// resolutions ready for lockfile.BuildLock.
func resolveProject(ctx context.Context, m *manifest.Manifest, log *logrus.Entry) (prod, dev *resolver.Resolution, err error) {
	client := fetcher.New(fetcher.Config{
		BaseURL:  defaultRepositoryURL,
		CacheDir: metadataCacheDir(),
	}, log)

	idx := index.New(client, index.Config{})
	res := resolver.New(idx, log)

	desc := platform.NewDescription(nil)
	desc.Override(m.Config.Platform)

	base := resolver.Request{
		Require:          m.Require,
		Mode:             resolver.PreferHighest,
		Platform:         desc,
		MinimumStability: stabilityFromString(m.MinimumStability),
	}
	if m.PreferStable {
		base.Mode = resolver.PreferStable
	}

	prod, err = res.Resolve(ctx, base)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving require: %w", err)
	}

	withDev := base
	withDev.RequireDev = m.RequireDev
	dev, err = res.Resolve(ctx, withDev)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving require-dev: %w", err)
	}

	return prod, dev, nil
}

func metadataCacheDir() string {
	return vendorPath() + "/.libretto-metadata-cache"
}

func buildGeneratorInput(m *manifest.Manifest) lockfile.GeneratorInput {
	return lockfile.GeneratorInput{
		Require:          m.Require,
		RequireDev:       m.RequireDev,
		MinimumStability: m.MinimumStability,
		PreferStable:     m.PreferStable,
		Platform:         m.Config.Platform,
	}
}
