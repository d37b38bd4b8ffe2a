// Package filter decides which schedule links are worth following.
package filter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Filter defines the interface for URL filtering
type Filter interface {
	ShouldKeep(ctx context.Context, url string) (bool, error)
}

// FilterURLs returns the URLs every filter keeps, in input order.
func FilterURLs(ctx context.Context, urls []string, filters ...Filter) ([]string, error) {
	filtered := make([]string, 0, len(urls))
	for _, u := range urls {
		keep, err := Keep(ctx, u, filters...)
		if err != nil {
			return nil, err
		}
		if keep {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// Keep reports whether every filter keeps urlStr.
func Keep(ctx context.Context, urlStr string, filters ...Filter) (bool, error) {
	for _, f := range filters {
		ok, err := f.ShouldKeep(ctx, urlStr)
		if err != nil {
			return false, fmt.Errorf("filter error for URL %s: %w", urlStr, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// BaseURLFilter drops links to a site root. Schedule pages often link
// programmes without their own page to the broadcaster's home page.
type BaseURLFilter struct{}

func NewBaseURLFilter() *BaseURLFilter {
	return &BaseURLFilter{}
}

// ShouldKeep returns false if the URL has an empty path.
func (f *BaseURLFilter) ShouldKeep(_ context.Context, urlStr string) (bool, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		// Unparseable links fail later, when fetched.
		return true, nil
	}
	return strings.Trim(parsed.Path, "/") != "", nil
}

// AlreadyFetchedFilter drops URLs present in a set, typically the store's
// existing episode URLs.
type AlreadyFetchedFilter struct {
	fetchedURLs map[string]bool
}

func NewAlreadyFetchedFilter(fetchedURLs map[string]bool) *AlreadyFetchedFilter {
	return &AlreadyFetchedFilter{fetchedURLs: fetchedURLs}
}

func (f *AlreadyFetchedFilter) ShouldKeep(_ context.Context, urlStr string) (bool, error) {
	return !f.fetchedURLs[urlStr], nil
}
