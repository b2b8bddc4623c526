// internal/viewer/meta.go
package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

// DefaultMetaSuffix replaces the model extension to locate its metadata document
const DefaultMetaSuffix = "_meta.json"

var modelExtension = regexp.MustCompile(`(?i)\.glb($|\?)`)

// DeriveMetaURL swaps the first ".glb" extension (at the end or before a query)
// for suffix. It returns "" when the URL has no such extension.
func DeriveMetaURL(modelURL, suffix string) string {
	loc := modelExtension.FindStringSubmatchIndex(modelURL)
	if loc == nil {
		return ""
	}
	// loc[2]:loc[3] is the captured "?" or empty end marker
	return modelURL[:loc[0]] + suffix + modelURL[loc[2]:]
}

// MeshSpec describes one mesh in a metadata document
type MeshSpec struct {
	Name     string    `json:"name"`
	Min      []float64 `json:"min,omitempty"`
	Max      []float64 `json:"max,omitempty"`
	Material string    `json:"material,omitempty"`
}

// Box returns the bounding box when both corners have three components
func (s MeshSpec) Box() (Box, bool) {
	if len(s.Min) != 3 || len(s.Max) != 3 {
		return Box{}, false
	}
	return Box{
		Min: Vec3{s.Min[0], s.Min[1], s.Min[2]},
		Max: Vec3{s.Max[0], s.Max[1], s.Max[2]},
	}, true
}

// Meta is the auxiliary per-model document
type Meta struct {
	URL    string          `json:"url"`
	Meshes []MeshSpec      `json:"meshes,omitempty"`
	Raw    json.RawMessage `json:"raw"`
}

// MetaFetcher retrieves metadata documents
type MetaFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Meta, error)
}

// HTTPMetaFetcher fetches metadata over HTTP, bypassing caches
type HTTPMetaFetcher struct {
	client *http.Client
	base   *url.URL
}

// NewHTTPMetaFetcher creates a fetcher; relative URLs resolve against baseURL when set
func NewHTTPMetaFetcher(baseURL string, timeout time.Duration) (*HTTPMetaFetcher, error) {
	f := &HTTPMetaFetcher{client: &http.Client{Timeout: timeout}}
	if baseURL != "" {
		base, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid asset base URL: %w", err)
		}
		f.base = base
	}
	return f, nil
}

// Fetch downloads and decodes a metadata document
func (f *HTTPMetaFetcher) Fetch(ctx context.Context, rawURL string) (*Meta, error) {
	target, err := f.resolve(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return ParseMeta(target, body)
}

// Close releases idle keep-alive connections
func (f *HTTPMetaFetcher) Close() {
	f.client.CloseIdleConnections()
}

func (f *HTTPMetaFetcher) resolve(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid metadata URL: %w", err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if f.base == nil {
		return "", fmt.Errorf("relative metadata URL %q without asset base URL", rawURL)
	}
	return f.base.ResolveReference(u).String(), nil
}

// ParseMeta decodes a metadata document; only a JSON object is accepted
func ParseMeta(source string, body []byte) (*Meta, error) {
	var doc struct {
		Meshes []MeshSpec `json:"meshes"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &Meta{
		URL:    source,
		Meshes: doc.Meshes,
		Raw:    json.RawMessage(body),
	}, nil
}
