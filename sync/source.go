package sync

import (
	"github.com/tidwall/gjson"
)

// Source is a read-only JSON document fetched from a remote, either a
// NationBuilder record or an API item.
type Source struct {
	data gjson.Result
}

func NewSource(json string) Source {
	return Source{data: gjson.Parse(json)}
}

func (s Source) StringForPath(path string) (string, bool) {
	result := s.data.Get(path)
	return result.String(), result.Exists() && (result.Value() != nil)
}

func (s Source) IntForPath(path string) (int64, bool) {
	result := s.data.Get(path)
	return result.Int(), result.Exists() && (result.Value() != nil)
}

func (s Source) FloatForPath(path string) (float64, bool) {
	result := s.data.Get(path)
	return result.Float(), result.Exists() && (result.Value() != nil)
}

func (s Source) BoolForPath(path string) (bool, bool) {
	result := s.data.Get(path)
	return result.Bool(), result.Exists() && (result.Value() != nil)
}

// StringsForPath returns the string elements of an array, or an empty slice.
func (s Source) StringsForPath(path string) []string {
	result := []string{}
	for _, v := range s.data.Get(path).Array() {
		if v.Type == gjson.String {
			result = append(result, v.String())
		}
	}
	return result
}

// TruthyForPath reports whether the value at path is present and not
// false, zero, null or the empty string.
func (s Source) TruthyForPath(path string) bool {
	result := s.data.Get(path)
	switch result.Type {
	case gjson.String:
		return result.Str != ""
	case gjson.Number:
		return result.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}

// ExternalID is the NationBuilder id carried by every imported record.
func (s Source) ExternalID() int64 {
	return s.data.Get("id").Int()
}
