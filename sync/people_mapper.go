package sync

const ResourcePeople = "people"

type PersonProps struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	EmailOptIn bool      `json:"email_opt_in"`
	Tags       []string  `json:"tags"`
	Location   *Location `json:"location,omitempty"`
}

func (p PersonProps) Resource() string {
	return ResourcePeople
}

func (p PersonProps) ExternalID() int64 {
	return p.ID
}

func (p PersonProps) UniqueKey() (string, string) {
	return "email", p.Email
}

// MapPerson maps a NationBuilder person. People without an email are
// skipped with ErrMissingEmail.
func MapPerson(source Source) (PersonProps, error) {
	mustBeInitialised()

	var result PersonProps
	email, _ := source.StringForPath("email")
	if email == "" {
		return result, ErrMissingEmail
	}
	result.ID = source.ExternalID()
	result.Email = email
	result.FirstName, _ = source.StringForPath("first_name")
	result.LastName, _ = source.StringForPath("last_name")
	result.EmailOptIn, _ = source.BoolForPath("email_opt_in")
	result.Tags = source.StringsForPath("tags")

	if source.TruthyForPath("primary_address.zip") && source.TruthyForPath("primary_address.city") {
		location := mapLocation(source, "primary_address")
		result.Location = &location
	}
	return result, nil
}
