package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/homemade/nbsync/metrics"
)

const apiSource = "api"

// DestinationRecord is one item of the API. ID and Etag come from the
// _id and _etag meta fields; Fields holds every other top-level field.
type DestinationRecord struct {
	ID     string
	Etag   string
	Fields map[string]interface{}
	Source Source
}

// ParseDestinationRecord reads an API item document.
func ParseDestinationRecord(json string) (DestinationRecord, error) {
	var result DestinationRecord
	if !gjson.Valid(json) {
		return result, errors.New("invalid json response")
	}
	return destinationRecordFrom(gjson.Parse(json)), nil
}

func destinationRecordFrom(doc gjson.Result) DestinationRecord {
	result := DestinationRecord{
		ID:     doc.Get("_id").String(),
		Etag:   doc.Get("_etag").String(),
		Fields: make(map[string]interface{}),
		Source: Source{data: doc},
	}
	doc.ForEach(func(key, value gjson.Result) bool {
		if !strings.HasPrefix(key.String(), "_") {
			result.Fields[key.String()] = value.Value()
		}
		return true
	})
	return result
}

// ExternalID is the NationBuilder id stored on the item.
func (r DestinationRecord) ExternalID() int64 {
	return r.Source.ExternalID()
}

// DestinationClient is the subset of the API the sync jobs use.
type DestinationClient interface {
	PageSource
	// Get looks a record up by external id or by _id.
	Get(ctx context.Context, resource string, id string) (DestinationRecord, error)
	// GetFresh is Get bypassing any cache between us and the API.
	GetFresh(ctx context.Context, resource string, id string) (DestinationRecord, error)
	Find(ctx context.Context, resource string, field string, value interface{}) ([]DestinationRecord, error)
	Create(ctx context.Context, resource string, fields map[string]interface{}) error
	Patch(ctx context.Context, resource string, id string, etag string, patch map[string]interface{}) error
}

// APIFetcherAndUpdater reads and writes people, events and groups on the API.
// It embeds *SyncContext for shared sync configuration.
type APIFetcherAndUpdater struct {
	*SyncContext
}

var _ DestinationClient = APIFetcherAndUpdater{}

// APIBuilder returns a new requests.Builder configured for the API with basic auth.
func (a APIFetcherAndUpdater) APIBuilder() *requests.Builder {
	return a.newAPIBuilder(a.Config.API.Endpoints.API, apiSource).
		BasicAuth(a.Config.API.Auth.User, a.Config.API.Auth.Password).
		Accept("application/json")
}

// checkAPIStatus maps error responses to the package error types.
func checkAPIStatus(resource string, id string, etag string) requests.ResponseHandler {
	return func(res *http.Response) error {
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			return nil
		}
		b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		body := string(b)
		switch res.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s/%s: %w", resource, id, ErrNotFound)
		case http.StatusPreconditionFailed:
			return &ConcurrencyError{Resource: resource, ID: id, Etag: etag}
		case http.StatusUnprocessableEntity:
			issues, _ := gjson.Get(body, "_issues").Value().(map[string]interface{})
			return &ValidationError{Resource: resource, Issues: issues}
		default:
			return &APIError{Resource: resource, StatusCode: res.StatusCode, Body: body}
		}
	}
}

func (a APIFetcherAndUpdater) get(ctx context.Context, resource string, id string, fresh bool) (DestinationRecord, error) {
	var json string
	builder := a.APIBuilder().
		Pathf("%s/%s", resource, id)
	if fresh {
		builder = builder.Header("Cache-Control", "no-cache")
	}
	err := builder.
		AddValidator(checkAPIStatus(resource, id, "")).
		ToString(&json).
		Fetch(ctx)
	if err != nil {
		return DestinationRecord{}, err
	}
	return ParseDestinationRecord(json)
}

func (a APIFetcherAndUpdater) Get(ctx context.Context, resource string, id string) (DestinationRecord, error) {
	return a.get(ctx, resource, id, false)
}

func (a APIFetcherAndUpdater) GetFresh(ctx context.Context, resource string, id string) (DestinationRecord, error) {
	return a.get(ctx, resource, id, true)
}

// Find lists the records whose field equals value, using an Eve where clause.
func (a APIFetcherAndUpdater) Find(ctx context.Context, resource string, field string, value interface{}) ([]DestinationRecord, error) {
	where, err := sjson.Set("{}", field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to build where clause %w", err)
	}
	var json string
	err = a.APIBuilder().
		Path(resource).
		Param("where", where).
		AddValidator(checkAPIStatus(resource, "", "")).
		ToString(&json).
		Fetch(ctx)
	if err != nil {
		return nil, err
	}
	var result []DestinationRecord
	for _, item := range gjson.Get(json, "_items").Array() {
		result = append(result, destinationRecordFrom(item))
	}
	return result, nil
}

func (a APIFetcherAndUpdater) Create(ctx context.Context, resource string, fields map[string]interface{}) error {
	return a.APIBuilder().
		Path(resource).
		BodyJSON(fields).
		AddValidator(checkAPIStatus(resource, "", "")).
		Fetch(ctx)
}

func (a APIFetcherAndUpdater) Patch(ctx context.Context, resource string, id string, etag string, patch map[string]interface{}) error {
	return a.APIBuilder().
		Patch().
		Pathf("%s/%s", resource, id).
		Header("If-Match", etag).
		BodyJSON(patch).
		AddValidator(checkAPIStatus(resource, id, etag)).
		Fetch(ctx)
}

// FetchAll paginates an API resource through its _links.next.href links.
func (a APIFetcherAndUpdater) FetchAll(resource string, pageSize int) PageFunc {
	query := url.Values{}
	query.Set("max_results", strconv.Itoa(pageSize))
	return a.pageAt(resource, query)
}

func (a APIFetcherAndUpdater) pageAt(path string, query url.Values) PageFunc {
	return func(ctx context.Context) (Page, PageFunc, error) {
		page := Page{Path: path}
		fail := func(err error) (Page, PageFunc, error) {
			metrics.PageFetches.WithLabelValues(apiSource, "failure").Inc()
			return page, nil, &PageFetchError{Source: apiSource, Path: path, Err: err}
		}

		var json string
		builder := a.APIBuilder().Path(path)
		for k, v := range query {
			builder = builder.Param(k, v...)
		}
		err := builder.
			AddValidator(checkAPIStatus(path, "", "")).
			ToString(&json).
			Fetch(ctx)
		if err != nil {
			return fail(err)
		}
		if !gjson.Valid(json) {
			return fail(errors.New("invalid json response"))
		}
		metrics.PageFetches.WithLabelValues(apiSource, "success").Inc()

		doc := gjson.Parse(json)
		for _, item := range doc.Get("_items").Array() {
			page.Records = append(page.Records, Source{data: item})
		}

		nextPath, nextQuery, err := splitNextLink(doc.Get("_links.next.href").String())
		if err != nil {
			return fail(err)
		}
		if nextPath == "" {
			return page, nil, nil
		}
		return page, a.pageAt(nextPath, nextQuery), nil
	}
}
