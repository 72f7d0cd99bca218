package sync

import (
	"context"
	"fmt"
	"strconv"
	gosync "sync"

	"github.com/goccy/go-json"
)

type fakeDoc struct {
	id     string
	etag   string
	fields map[string]interface{}
}

// fakeDestination is an in-memory API. Patches are checked against the
// stored etag like the real API does.
type fakeDestination struct {
	mu        gosync.Mutex
	docs      map[string][]*fakeDoc
	seq       int
	calls     map[string]int
	createErr error
	getErr    error
	findErr   error
	// conflicts is the number of upcoming patches of an _id rejected with 412
	conflicts map[string]int
	// afterGet runs once a read is done, outside the lock
	afterGet func(call string, resource string)
}

var _ DestinationClient = (*fakeDestination)(nil)

func newFakeDestination() *fakeDestination {
	return &fakeDestination{
		docs:      make(map[string][]*fakeDoc),
		calls:     make(map[string]int),
		conflicts: make(map[string]int),
	}
}

// put stores a document as is and returns its _id.
func (f *fakeDestination) put(resource string, etag string, fields map[string]interface{}) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("%024d", f.seq)
	f.docs[resource] = append(f.docs[resource], &fakeDoc{id: id, etag: etag, fields: normalise(fields)})
	return id
}

func (f *fakeDestination) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeDestination) fieldsOf(resource string, id string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d := f.find(resource, id); d != nil {
		return d.fields
	}
	return nil
}

func (f *fakeDestination) count(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[resource])
}

// normalise gives fields the types they have once read back from JSON.
func normalise(fields map[string]interface{}) map[string]interface{} {
	b, _ := json.Marshal(fields)
	result := make(map[string]interface{})
	_ = json.Unmarshal(b, &result)
	return result
}

func (f *fakeDestination) find(resource string, id string) *fakeDoc {
	for _, d := range f.docs[resource] {
		if d.id == id {
			return d
		}
		if n, ok := d.fields["id"].(float64); ok && strconv.FormatFloat(n, 'f', -1, 64) == id {
			return d
		}
	}
	return nil
}

func recordOf(d *fakeDoc) DestinationRecord {
	m := make(map[string]interface{}, len(d.fields)+2)
	for k, v := range d.fields {
		m[k] = v
	}
	m["_id"] = d.id
	m["_etag"] = d.etag
	b, _ := json.Marshal(m)
	r, _ := ParseDestinationRecord(string(b))
	return r
}

func (f *fakeDestination) get(resource string, id string, call string) (DestinationRecord, error) {
	record, err := f.read(resource, id, call)
	if f.afterGet != nil {
		f.afterGet(call, resource)
	}
	return record, err
}

func (f *fakeDestination) read(resource string, id string, call string) (DestinationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[call]++
	if f.getErr != nil {
		return DestinationRecord{}, f.getErr
	}
	d := f.find(resource, id)
	if d == nil {
		return DestinationRecord{}, fmt.Errorf("%s/%s: %w", resource, id, ErrNotFound)
	}
	return recordOf(d), nil
}

func (f *fakeDestination) Get(ctx context.Context, resource string, id string) (DestinationRecord, error) {
	return f.get(resource, id, "get")
}

func (f *fakeDestination) GetFresh(ctx context.Context, resource string, id string) (DestinationRecord, error) {
	return f.get(resource, id, "getFresh")
}

func (f *fakeDestination) Find(ctx context.Context, resource string, field string, value interface{}) ([]DestinationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["find"]++
	if f.findErr != nil {
		return nil, f.findErr
	}
	var result []DestinationRecord
	for _, d := range f.docs[resource] {
		if fmt.Sprint(d.fields[field]) == fmt.Sprint(value) {
			result = append(result, recordOf(d))
		}
	}
	return result, nil
}

func (f *fakeDestination) Create(ctx context.Context, resource string, fields map[string]interface{}) error {
	f.mu.Lock()
	f.calls["create"]++
	err := f.createErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.put(resource, "etag-created", fields)
	return nil
}

func (f *fakeDestination) Patch(ctx context.Context, resource string, id string, etag string, patch map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["patch"]++
	d := f.find(resource, id)
	if d == nil {
		return fmt.Errorf("%s/%s: %w", resource, id, ErrNotFound)
	}
	if f.conflicts[id] > 0 {
		f.conflicts[id]--
		return &ConcurrencyError{Resource: resource, ID: id, Etag: etag}
	}
	if d.etag != etag {
		return &ConcurrencyError{Resource: resource, ID: id, Etag: etag}
	}
	for k, v := range normalise(patch) {
		d.fields[k] = v
	}
	f.seq++
	d.etag = fmt.Sprintf("etag-%d", f.seq)
	return nil
}

func (f *fakeDestination) FetchAll(resource string, pageSize int) PageFunc {
	var pageAt func(offset int) PageFunc
	pageAt = func(offset int) PageFunc {
		return func(ctx context.Context) (Page, PageFunc, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.calls["fetchAll"]++
			docs := f.docs[resource]
			end := min(offset+pageSize, len(docs))
			page := Page{Path: resource}
			for _, d := range docs[offset:end] {
				page.Records = append(page.Records, recordOf(d).Source)
			}
			if end >= len(docs) {
				return page, nil, nil
			}
			return page, pageAt(end), nil
		}
	}
	return pageAt(0)
}

// staticSource serves fixed pages of JSON records per collection.
type staticSource struct {
	mu      gosync.Mutex
	pages   map[string][][]string
	fetched []string
	err     error
}

func (s *staticSource) FetchAll(collection string, pageSize int) PageFunc {
	var pageAt func(i int) PageFunc
	pageAt = func(i int) PageFunc {
		return func(ctx context.Context) (Page, PageFunc, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.fetched = append(s.fetched, fmt.Sprintf("%s#%d", collection, i))
			if s.err != nil {
				return Page{}, nil, &PageFetchError{Source: "static", Path: collection, Err: s.err}
			}
			pages := s.pages[collection]
			page := Page{Path: collection}
			if i >= len(pages) {
				return page, nil, nil
			}
			for _, r := range pages[i] {
				page.Records = append(page.Records, NewSource(r))
			}
			if i+1 >= len(pages) {
				return page, nil, nil
			}
			return page, pageAt(i + 1), nil
		}
	}
	return pageAt(0)
}

func (s *staticSource) FetchRSVPs(eventID int64, pageSize int) PageFunc {
	return s.FetchAll(fmt.Sprintf("rsvps/%d", eventID), pageSize)
}
