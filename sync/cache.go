package sync

import (
	gosync "sync"
)

// PersonURLCache maps a NationBuilder person id to the person's API URL.
// Entries are never replaced or invalidated for the life of the process.
type PersonURLCache struct {
	urls gosync.Map // map[int64]string
}

func (c *PersonURLCache) Load(id int64) (string, bool) {
	v, ok := c.urls.Load(id)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// LoadOrStore stores url unless an entry exists, and returns the entry kept.
func (c *PersonURLCache) LoadOrStore(id int64, url string) string {
	v, _ := c.urls.LoadOrStore(id, url)
	return v.(string)
}

// PersonURL is the path of a person relative to the API root.
func PersonURL(record DestinationRecord) string {
	return ResourcePeople + "/" + record.ID
}
