// Package blob turns the opaque image references the event backend hands out
// into URLs a viewer can open.
package blob

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Resolver joins relative image references to the backend's public base URL.
type Resolver struct {
	base *url.URL
}

// NewResolver parses baseURL (e.g. "http://localhost:5000"). An empty base
// leaves relative references untouched.
func NewResolver(baseURL string) (*Resolver, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return &Resolver{}, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid image base URL %q", baseURL)
	}
	return &Resolver{base: u}, nil
}

// Resolve returns the URL for ref, or "" when the event has no image.
// Absolute references pass through unchanged.
func (r *Resolver) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		return ref
	}
	if r == nil || r.base == nil {
		return ref
	}

	// Windows-style separators show up when uploads are stored by path.
	ref = strings.ReplaceAll(ref, "\\", "/")
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	resolved := *r.base
	resolved.Path = path.Join("/", r.base.Path, rel.Path)
	resolved.RawQuery = rel.RawQuery
	resolved.Fragment = ""
	return resolved.String()
}
