package sync

import (
	"context"
	"fmt"
	"net/url"
)

// Page is one page of records from a paginated collection.
type Page struct {
	Path    string
	Records []Source
}

// PageFunc fetches one page and returns the function fetching the next one.
// A nil next PageFunc means the collection is exhausted.
type PageFunc func(ctx context.Context) (Page, PageFunc, error)

// PageSource is implemented by every remote whose collections can be paginated.
type PageSource interface {
	FetchAll(collection string, pageSize int) PageFunc
}

// Walk follows the PageFunc chain from first, calling fn with every page in
// order. The next page is not fetched until fn returns. The first error from
// a fetch or from fn stops the walk.
func Walk(ctx context.Context, first PageFunc, fn func(Page) error) error {
	for next := first; next != nil; {
		if err := ctx.Err(); err != nil {
			return err
		}
		var page Page
		var err error
		page, next, err = next(ctx)
		if err != nil {
			return err
		}
		if err = fn(page); err != nil {
			return err
		}
	}
	return nil
}

// splitNextLink turns a relative next link such as
// "/api/v1/people?__nonce=abc&__token=def&limit=10" into a path and query.
// An empty link yields an empty path: there is no further page.
func splitNextLink(link string) (string, url.Values, error) {
	if link == "" {
		return "", nil, nil
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", nil, fmt.Errorf("invalid next link %q %w", link, err)
	}
	if u.Path == "" {
		return "", nil, fmt.Errorf("invalid next link %q without path", link)
	}
	return u.Path, u.Query(), nil
}
