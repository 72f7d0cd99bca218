package sync

// MappedProps is the field set a mapper derives from one source record:
// one of PersonProps, EventProps or GroupProps.
type MappedProps interface {
	// Resource is the API resource the props are written to.
	Resource() string
	ExternalID() int64
	// UniqueKey is the field the API enforces uniqueness on, with its value.
	UniqueKey() (field string, value string)
}

// Location is a postal address. It is only mapped when the address is
// complete enough to be useful.
type Location struct {
	Address     string `json:"address"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	State       string `json:"state"`
}

// mapLocation reads an address object such as primary_address or venue.address.
func mapLocation(source Source, prefix string) Location {
	str := func(field string) string {
		s, _ := source.StringForPath(prefix + "." + field)
		return s
	}
	countryCode, _ := source.StringForPath(prefix + ".country_code|@countryCode")
	return Location{
		Address:     str("address1") + ", " + str("zip") + " " + str("city"),
		Address1:    str("address1"),
		Address2:    str("address2"),
		City:        str("city"),
		CountryCode: countryCode,
		Zip:         str("zip"),
		State:       str("state"),
	}
}
