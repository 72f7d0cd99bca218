package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"

	"github.com/homemade/nbsync/logging"
	"github.com/homemade/nbsync/metrics"
)

const nationBuilderSource = "nationbuilder"

// NationBuilderFetcherAndUpdater reads people, events and RSVPs from NationBuilder.
// It embeds *SyncContext for shared sync configuration.
type NationBuilderFetcherAndUpdater struct {
	*SyncContext
	Limiter *RateLimiter
}

func NewNationBuilderFetcherAndUpdater(sc *SyncContext) *NationBuilderFetcherAndUpdater {
	return &NationBuilderFetcherAndUpdater{
		SyncContext: sc,
		Limiter:     NewRateLimiter(sc.Config.Paging.RequestsPerSecond, sc.Config.Paging.LowWater),
	}
}

// NationBuilderAPIBuilder returns a new requests.Builder configured for the NationBuilder API.
func (n *NationBuilderFetcherAndUpdater) NationBuilderAPIBuilder() *requests.Builder {
	return n.newAPIBuilder(n.Config.API.NationBuilderEndpoint(), nationBuilderSource)
}

// FetchAll paginates /api/v1/<collection>, e.g. "people" or
// "sites/<slug>/pages/events".
func (n *NationBuilderFetcherAndUpdater) FetchAll(collection string, pageSize int) PageFunc {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageSize))
	return n.pageAt("api/v1/"+collection, query)
}

// FetchRSVPs paginates the RSVPs of one event.
func (n *NationBuilderFetcherAndUpdater) FetchRSVPs(eventID int64, pageSize int) PageFunc {
	return n.FetchAll(fmt.Sprintf("sites/%s/pages/events/%d/rsvps", n.Config.API.Ids.NationSlug, eventID), pageSize)
}

func (n *NationBuilderFetcherAndUpdater) pageAt(path string, query url.Values) PageFunc {
	return func(ctx context.Context) (Page, PageFunc, error) {
		page := Page{Path: path}
		fail := func(err error) (Page, PageFunc, error) {
			metrics.PageFetches.WithLabelValues(nationBuilderSource, "failure").Inc()
			return page, nil, &PageFetchError{Source: nationBuilderSource, Path: path, Err: err}
		}

		if err := n.Limiter.Wait(ctx); err != nil {
			return fail(err)
		}

		var body string
		var header http.Header
		builder := n.NationBuilderAPIBuilder().
			Path(path).
			Accept("application/json")
		for k, v := range query {
			if k == "access_token" {
				continue
			}
			builder = builder.Param(k, v...)
		}
		err := builder.
			Param("access_token", n.Config.API.Keys.NationBuilder).
			Handle(func(res *http.Response) error {
				header = res.Header
				return requests.ToString(&body)(res)
			}).
			Fetch(ctx)
		if err != nil {
			return fail(err)
		}
		if !gjson.Valid(body) {
			logging.Debug().Str("path", path).Str("body", body).Msg("Invalid NationBuilder response")
			return fail(errors.New("invalid json response"))
		}
		metrics.PageFetches.WithLabelValues(nationBuilderSource, "success").Inc()

		doc := gjson.Parse(body)
		for _, r := range doc.Get("results").Array() {
			page.Records = append(page.Records, Source{data: r})
		}

		if err = n.Limiter.Throttle(ctx, header); err != nil {
			return fail(err)
		}

		nextPath, nextQuery, err := splitNextLink(doc.Get("next").String())
		if err != nil {
			return fail(err)
		}
		if nextPath == "" {
			return page, nil, nil
		}
		return page, n.pageAt(nextPath, nextQuery), nil
	}
}
