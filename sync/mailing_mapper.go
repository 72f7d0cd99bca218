package sync

import (
	"strings"

	"github.com/iancoleman/strcase"
)

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// TagFilter keeps tags listed in Allowed or starting with one of Prefixes.
type TagFilter struct {
	Allowed  []string `yaml:"allowed"`
	Prefixes []string `yaml:"prefixes"`
}

func (f TagFilter) Keep(tag string) bool {
	for _, a := range f.Allowed {
		if tag == a {
			return true
		}
	}
	for _, p := range f.Prefixes {
		if p != "" && strings.HasPrefix(tag, p) {
			return true
		}
	}
	return false
}

func (f TagFilter) Filter(tags []string) []string {
	result := []string{}
	for _, t := range tags {
		if f.Keep(t) {
			result = append(result, t)
		}
	}
	return result
}

// Subscription is the mailing list state of one person.
type Subscription struct {
	Action       string
	Email        string
	Tags         []string
	Zipcode      string
	Inscriptions []string
}

// mergeTag names a mailing list merge field, e.g. "zipcode" is MERGE_ZIPCODE.
func mergeTag(name string) string {
	return "MERGE_" + strcase.ToScreamingSnake(name)
}

// MergeFields is the request body sent to the mailing platform.
func (s Subscription) MergeFields() map[string]string {
	return map[string]string{
		"EMAIL":                  s.Email,
		mergeTag("tags"):         strings.Join(s.Tags, ","),
		mergeTag("zipcode"):      s.Zipcode,
		mergeTag("inscriptions"): strings.Join(s.Inscriptions, ","),
	}
}

// MapSubscription maps an API person to its subscription. Bounced people
// and people without an email are skipped.
func MapSubscription(person Source, tags TagFilter) (Subscription, error) {
	var result Subscription
	if bounced, _ := person.BoolForPath("bounced"); bounced {
		return result, ErrBounced
	}
	email, _ := person.StringForPath("email")
	if email == "" {
		return result, ErrMissingEmail
	}

	result.Email = email
	result.Action = ActionUnsubscribe
	if optIn, _ := person.BoolForPath("email_opt_in"); optIn {
		result.Action = ActionSubscribe
	}
	result.Tags = tags.Filter(person.StringsForPath("tags"))
	result.Zipcode, _ = person.StringForPath("location.zip")

	if len(person.StringsForPath("events")) > 0 {
		result.Inscriptions = append(result.Inscriptions, "evenements")
	} else {
		result.Inscriptions = append(result.Inscriptions, "sans_evenements")
	}
	if len(person.StringsForPath("groups")) > 0 {
		result.Inscriptions = append(result.Inscriptions, "groupe_appui")
	} else {
		result.Inscriptions = append(result.Inscriptions, "sans_groupe_appui")
	}
	return result, nil
}
