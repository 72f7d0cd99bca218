package sync

import (
	"fmt"
	"strings"
)

// publishedStatus marks a published NationBuilder event, e.g. "publiée (visible)".
const publishedStatus = "publiée"

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Point is a GeoJSON point, [longitude, latitude].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type EventLocation struct {
	Name string `json:"name"`
	Location
}

// GroupProps are the fields shared by groups and events.
type GroupProps struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Tags        []string       `json:"tags"`
	Published   bool           `json:"published"`
	Contact     Contact        `json:"contact"`
	Description string         `json:"description,omitempty"`
	Coordinates *Point         `json:"coordinates,omitempty"`
	Location    *EventLocation `json:"location,omitempty"`
}

func (p GroupProps) Resource() string {
	return ResourceGroups
}

func (p GroupProps) ExternalID() int64 {
	return p.ID
}

func (p GroupProps) UniqueKey() (string, string) {
	return "path", p.Path
}

type EventProps struct {
	GroupProps
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Calendar  string `json:"calendar"`
}

func (p EventProps) Resource() string {
	return ResourceEvents
}

// EventMapper maps NationBuilder event pages to groups or events according
// to their calendar.
type EventMapper struct {
	Categories CategoryTable
	// PhoneRegion is the region national phone numbers are parsed in, e.g. FR.
	PhoneRegion string
}

// Map returns GroupProps or EventProps. Records of unknown or excluded
// calendars return an error wrapping ErrSkipRecord.
func (m EventMapper) Map(source Source) (MappedProps, error) {
	mustBeInitialised()

	id := source.ExternalID()
	code, _ := source.IntForPath("calendar_id")
	category, err := m.Categories.Lookup(code)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", id, err)
	}

	group := GroupProps{ID: id}
	group.Name, _ = source.StringForPath("name")
	group.Path, _ = source.StringForPath("path")
	group.Tags = source.StringsForPath("tags")
	status, _ := source.StringForPath("status")
	group.Published = strings.Contains(status, publishedStatus)
	group.Contact.Name, _ = source.StringForPath("contact.name")
	if source.TruthyForPath("contact.show_phone") && source.TruthyForPath("contact.phone") {
		group.Contact.Phone, _ = source.StringForPath(m.phonePath("contact.phone"))
	}
	if source.TruthyForPath("contact.show_email") && source.TruthyForPath("contact.email") {
		group.Contact.Email, _ = source.StringForPath("contact.email")
	}
	if source.TruthyForPath("intro") {
		group.Description, _ = source.StringForPath("intro")
	}
	if source.TruthyForPath("venue.address.lng") && source.TruthyForPath("venue.address.lat") {
		lng, _ := source.FloatForPath("venue.address.lng")
		lat, _ := source.FloatForPath("venue.address.lat")
		group.Coordinates = &Point{Type: "Point", Coordinates: [2]float64{lng, lat}}
		location := EventLocation{Location: mapLocation(source, "venue.address")}
		location.Name, _ = source.StringForPath("venue.name")
		group.Location = &location
	}

	if !category.Timed {
		return group, nil
	}

	event := EventProps{GroupProps: group, Calendar: category.Calendar}
	var exists bool
	if event.StartTime, exists = source.StringForPath("start_time|@isoTime"); !exists {
		return nil, fmt.Errorf("event %d: invalid start_time", id)
	}
	if event.EndTime, exists = source.StringForPath("end_time|@isoTime"); !exists {
		return nil, fmt.Errorf("event %d: invalid end_time", id)
	}
	return event, nil
}

func (m EventMapper) phonePath(path string) string {
	if m.PhoneRegion == "" {
		return path
	}
	return fmt.Sprintf("%s|@phone:%s", path, m.PhoneRegion)
}
