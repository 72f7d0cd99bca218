package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testAPI(t *testing.T, handler http.HandlerFunc) APIFetcherAndUpdater {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok || user != "admin" || password != "pass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	var cfg Config
	cfg.Job = JobImportEvents
	cfg.API.Endpoints.API = srv.URL
	cfg.API.Auth.User = "admin"
	cfg.API.Auth.Password = "pass"
	return APIFetcherAndUpdater{SyncContext: NewSyncContext(cfg)}
}

func TestAPI_Get(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/events/1234":
			fmt.Fprint(w, `{"_id":"5a0000000000000000000001","_etag":"v1","_updated":"Sat, 18 Mar 2017 15:00:00 GMT","id":1234,"name":"Réunion","tags":["lille"]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"_status":"ERR","_error":{"code":404,"message":"Not Found"}}`)
		}
	})

	record, err := api.Get(context.Background(), ResourceEvents, "1234")
	require.NoError(t, err)
	assert.Equal(t, "5a0000000000000000000001", record.ID)
	assert.Equal(t, "v1", record.Etag)
	assert.Equal(t, int64(1234), record.ExternalID())
	assert.Equal(t, map[string]interface{}{"id": float64(1234), "name": "Réunion", "tags": []interface{}{"lille"}}, record.Fields)

	_, err = api.Get(context.Background(), ResourceEvents, "1235")
	assert.True(t, IsNotFound(err), err)
}

func TestAPI_GetFreshBypassesCache(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		fmt.Fprint(w, `{"_id":"a","_etag":"v2","id":1}`)
	})

	record, err := api.GetFresh(context.Background(), ResourcePeople, "a")
	require.NoError(t, err)
	assert.Equal(t, "v2", record.Etag)
}

func TestAPI_Find(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people", r.URL.Path)
		assert.JSONEq(t, `{"email":"jean.dupont@example.com"}`, r.URL.Query().Get("where"))
		fmt.Fprint(w, `{"_items":[{"_id":"a","_etag":"v1","id":42,"email":"jean.dupont@example.com"}],"_meta":{"total":1}}`)
	})

	records, err := api.Find(context.Background(), ResourcePeople, "email", "jean.dupont@example.com")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(42), records[0].ExternalID())
}

func TestAPI_CreateValidationError(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "reunion_lille", gjson.GetBytes(body, "path").String())
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"_status":"ERR","_issues":{"path":"value 'reunion_lille' is not unique"}}`)
	})

	err := api.Create(context.Background(), ResourceEvents, map[string]interface{}{"id": 1234, "path": "reunion_lille"})
	var validation *ValidationError
	require.True(t, errors.As(err, &validation), err)
	assert.Equal(t, map[string]interface{}{"path": "value 'reunion_lille' is not unique"}, validation.Issues)
}

func TestAPI_PatchSendsEtag(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/people/a", r.URL.Path)
		if r.Header.Get("If-Match") != "v2" {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		fmt.Fprint(w, `{"_status":"OK","_id":"a","_etag":"v3"}`)
	})

	err := api.Patch(context.Background(), ResourcePeople, "a", "v1", map[string]interface{}{"bounced": true})
	assert.True(t, IsConcurrencyConflict(err), err)

	err = api.Patch(context.Background(), ResourcePeople, "a", "v2", map[string]interface{}{"bounced": true})
	assert.NoError(t, err)
}

func TestAPI_UnexpectedStatus(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "bad gateway")
	})

	_, err := api.Get(context.Background(), ResourcePeople, "42")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), err)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.False(t, IsNotFound(err))
}

func TestAPI_FetchAll(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups", r.URL.Path)
		switch r.URL.Query().Get("page") {
		case "":
			assert.Equal(t, "2", r.URL.Query().Get("max_results"))
			fmt.Fprint(w, `{"_items":[{"_id":"a","id":1},{"_id":"b","id":2}],"_links":{"next":{"href":"groups?max_results=2&page=2","title":"next page"}}}`)
		case "2":
			fmt.Fprint(w, `{"_items":[{"_id":"c","id":3}],"_links":{}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ids, err := walkIDs(context.Background(), api.FetchAll(ResourceGroups, 2))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}
