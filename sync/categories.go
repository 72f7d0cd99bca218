package sync

import "fmt"

const (
	ResourceEvents = "events"
	ResourceGroups = "groups"
)

// Category is the import rule for one NationBuilder calendar.
type Category struct {
	Name     string
	Resource string
	// Calendar is the API calendar the events are filed under.
	Calendar string
	// Timed categories carry start and end times.
	Timed bool
	// Excluded categories are never imported.
	Excluded bool
}

// CategoryTable maps a NationBuilder calendar_id to its import rule.
type CategoryTable map[int64]Category

var DefaultCategories = CategoryTable{
	3:  {Name: "groupes_appui", Resource: ResourceGroups},
	4:  {Name: "evenements_locaux", Resource: ResourceEvents, Calendar: "evenements_locaux", Timed: true},
	7:  {Name: "melenchon", Resource: ResourceEvents, Calendar: "melenchon", Timed: true},
	10: {Name: "covoiturage", Excluded: true},
	14: {Name: "hebergement", Excluded: true},
	15: {Name: "reunions_circonscription", Resource: ResourceEvents, Calendar: "reunions_circonscription", Timed: true},
	16: {Name: "reunions_publiques", Resource: ResourceEvents, Calendar: "reunions_publiques", Timed: true},
	17: {Name: "camion_melenchon", Resource: ResourceEvents, Calendar: "camion_melenchon", Timed: true},
}

// Lookup returns the rule for a calendar_id. Unknown ids return
// ErrUnknownCategory and excluded ones ErrExcludedCategory.
func (t CategoryTable) Lookup(code int64) (Category, error) {
	c, ok := t[code]
	if !ok {
		return c, fmt.Errorf("calendar_id %d: %w", code, ErrUnknownCategory)
	}
	if c.Excluded {
		return c, fmt.Errorf("calendar_id %d (%s): %w", code, c.Name, ErrExcludedCategory)
	}
	return c, nil
}
