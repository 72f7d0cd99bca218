package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffFields(t *testing.T) {
	actual := map[string]interface{}{
		"id":         float64(42),
		"first_name": "Jean",
		"tags":       []interface{}{"a", "b"},
		"location":   map[string]interface{}{"city": "Paris", "zip": "75002", "coordinates": []interface{}{2.33, 48.87}},
		"events":     []interface{}{"5a0000000000000000000001"},
		"legacy":     "x",
		"removed":    nil,
	}
	expected := map[string]interface{}{
		"id":         float64(42),
		"first_name": "Jean",
		"tags":       []interface{}{"a", "b"},
		"location":   map[string]interface{}{"city": "Paris", "zip": "75002"},
	}

	tests := []struct {
		name   string
		policy DiffPolicy
		want   map[string]FieldDiff
	}{
		{
			name:   "mapped",
			policy: DiffPolicy{Compare: CompareMapped},
			want:   map[string]FieldDiff{},
		},
		{
			name:   "full reports unmapped fields and nested extras",
			policy: DiffPolicy{Compare: CompareFull, Owned: []string{"events"}},
			want: map[string]FieldDiff{
				"legacy":   {Actual: "x"},
				"location": {Actual: actual["location"], Expected: expected["location"]},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiffFields(actual, expected, tt.policy))
		})
	}
}

func TestDiffFields_TagOrderMatters(t *testing.T) {
	diff := DiffFields(
		map[string]interface{}{"tags": []interface{}{"b", "a"}},
		map[string]interface{}{"tags": []interface{}{"a", "b"}},
		DiffPolicy{},
	)
	assert.Contains(t, diff, "tags")
}

func TestDiffFields_MissingFieldDiffers(t *testing.T) {
	diff := DiffFields(
		map[string]interface{}{},
		map[string]interface{}{"description": "Réunion publique"},
		DiffPolicy{},
	)
	assert.Equal(t, map[string]FieldDiff{"description": {Actual: nil, Expected: "Réunion publique"}}, diff)
}

func TestPatchFor(t *testing.T) {
	expected := map[string]interface{}{"id": float64(42), "first_name": "Jeanne", "last_name": "Dupont"}
	diff := map[string]FieldDiff{
		"first_name": {Actual: "Jean", Expected: "Jeanne"},
		"legacy":     {Actual: "x", Expected: nil},
	}

	assert.Equal(t, map[string]interface{}{
		"id":         float64(42),
		"first_name": "Jeanne",
		"last_name":  "Dupont",
		"legacy":     nil,
	}, PatchFor(diff, expected, DiffPolicy{Write: WriteFull}))

	assert.Equal(t, map[string]interface{}{
		"first_name": "Jeanne",
		"legacy":     nil,
	}, PatchFor(diff, expected, DiffPolicy{Write: WriteSparse}))
}
