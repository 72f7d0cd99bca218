package sync

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

// CompareMode selects which fields take part in change detection.
type CompareMode int

const (
	// CompareMapped only compares the fields the mapper produced. Nested
	// objects are compared on their mapped keys only.
	CompareMapped CompareMode = iota
	// CompareFull also reports fields present on the record but not produced
	// by the mapper, unless they are Owned by another job.
	CompareFull
)

// WriteMode selects which fields a patch sends once a difference is found.
type WriteMode int

const (
	// WriteFull sends every mapped field.
	WriteFull WriteMode = iota
	// WriteSparse sends only the differing fields.
	WriteSparse
)

// DiffPolicy configures change detection for one resource.
type DiffPolicy struct {
	Compare CompareMode
	Write   WriteMode
	// Owned lists fields written by other jobs, never reported by CompareFull.
	Owned []string
}

type FieldDiff struct {
	Actual   interface{} `json:"actual"`
	Expected interface{} `json:"expected"`
}

// DiffFields compares the fields of an existing record with mapped fields.
// An empty result means the record is up to date.
func DiffFields(actual map[string]interface{}, expected map[string]interface{}, policy DiffPolicy) map[string]FieldDiff {
	result := make(map[string]FieldDiff)
	strict := policy.Compare == CompareFull
	for k, e := range expected {
		a := actual[k]
		if !equalValues(a, e, strict) {
			result[k] = FieldDiff{Actual: a, Expected: e}
		}
	}
	if strict {
		for k, a := range actual {
			if _, mapped := expected[k]; mapped || a == nil || slices.Contains(policy.Owned, k) {
				continue
			}
			result[k] = FieldDiff{Actual: a, Expected: nil}
		}
	}
	return result
}

// PatchFor builds the patch body for a non-empty diff.
func PatchFor(diff map[string]FieldDiff, expected map[string]interface{}, policy DiffPolicy) map[string]interface{} {
	result := make(map[string]interface{})
	if policy.Write == WriteFull {
		for k, v := range expected {
			result[k] = v
		}
	}
	for k, d := range diff {
		result[k] = d.Expected
	}
	return result
}

func equalValues(actual, expected interface{}, strict bool) bool {
	if !strict {
		e, eok := expected.(map[string]interface{})
		a, aok := actual.(map[string]interface{})
		if eok && aok {
			for k, v := range e {
				if !equalValues(a[k], v, strict) {
					return false
				}
			}
			return true
		}
	}
	return bytes.Equal(canonicalJSON(actual), canonicalJSON(expected))
}

// canonicalJSON encodes v with sorted map keys, so equal documents compare equal.
func canonicalJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(fmt.Sprintf("%#v", v))
	}
	return b
}

// FieldsOf flattens mapped props to the generic form records are compared in.
func FieldsOf(props MappedProps) (map[string]interface{}, error) {
	b, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	result := make(map[string]interface{})
	if err = json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}
