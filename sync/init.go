package sync

import (
	"fmt"
	"strings"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/biter777/countries"
	"github.com/tidwall/gjson"
	"github.com/ttacon/libphonenumber"

	"github.com/homemade/nbsync/logging"
)

// ISOTimestampFormat matches JavaScript's Date.prototype.toISOString.
const ISOTimestampFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	initialised atomic.Bool
	initOnce    gosync.Once
)

// mustBeInitialised panics if Init has not been called.
// This should be called at the entry points of the library
// to catch programming errors early.
func mustBeInitialised() {
	if !initialised.Load() {
		panic("sync: Init() must be called before using this package")
	}
}

// Init registers the gjson modifiers used by the mappers. It must be called
// once before any other function of the package; later calls are no-ops.
func Init() {
	initOnce.Do(func() {
		registerModifiers()
		initialised.Store(true)
	})
}

func registerModifiers() {

	// @isoTime normalises a timestamp with any offset to UTC with millisecond precision
	gjson.AddModifier("isoTime", func(json, arg string) string {
		res := gjson.Parse(json)
		if res.Type != gjson.String || res.Str == "" {
			return ""
		}
		t, err := time.Parse(time.RFC3339, res.Str)
		if err != nil {
			return ""
		}
		return fmt.Sprintf(`"%s"`, t.UTC().Format(ISOTimestampFormat))
	})

	// @countryCode converts a country name, alpha-2 or alpha-3 code to alpha-2
	gjson.AddModifier("countryCode", func(json, arg string) string {
		res := gjson.Parse(json)
		if res.Type != gjson.String || res.Str == "" {
			return json
		}
		c := countries.ByName(res.Str)
		if countries.Unknown == c {
			return json
		}
		return fmt.Sprintf(`"%s"`, c.Alpha2())
	})

	// @phone:<region> formats a phone number as E.164, parsing national
	// numbers in the given default region
	gjson.AddModifier("phone", func(json, arg string) string {
		res := gjson.Parse(json)
		number := strings.TrimSpace(res.String())
		if number == "" {
			return json
		}
		num, err := libphonenumber.Parse(number, arg)
		if err != nil {
			logging.Debug().Err(err).Str("region", arg).Msg("failed to parse phone number, keeping it as is")
			return json
		}
		return fmt.Sprintf(`"%s"`, libphonenumber.Format(num, libphonenumber.E164))
	})

}
