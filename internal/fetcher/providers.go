package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
)

type providersDocument struct {
	Providers []string `json:"providers"`
}

// Providers implements index.ProviderSource: it resolves a virtual
// package name (e.g. "psr/log-implementation") to the real package names
// that provide or replace it, by querying the repository's
// provider-includes endpoint. A 404 means no known providers, which is not
// an error — most virtual names have none.
func (c *Client) Providers(ctx context.Context, virtualName string) ([]string, error) {
	u, err := c.providersURL(virtualName)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.TotalTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept-Encoding", acceptEncodingHeader)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	var doc providersDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc.Providers, nil
}
