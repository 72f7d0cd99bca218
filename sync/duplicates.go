package sync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/homemade/nbsync/logging"
)

// DuplicateKind classifies why a create was rejected as not unique.
type DuplicateKind string

const (
	// DuplicateUnexplained means nothing matches the unique key, so the rejection has another cause.
	DuplicateUnexplained DuplicateKind = "unexplained"
	// DuplicateCornerCase means the match carries the same external id.
	DuplicateCornerCase DuplicateKind = "corner_case"
	// DuplicateExact means a record of another external id has identical fields.
	DuplicateExact DuplicateKind = "exact"
	// DuplicatePartial means a record of another external id differs on some fields.
	DuplicatePartial DuplicateKind = "partial"
	// DuplicateLookupFailed means the matching records could not be listed.
	DuplicateLookupFailed DuplicateKind = "lookup_failed"
)

type DuplicateReport struct {
	Kind        DuplicateKind
	Existing    *DestinationRecord
	Differences map[string]FieldDiff
}

// DuplicateInvestigator explains why a create was rejected by looking up
// the records sharing its unique key. It only logs, never writes.
type DuplicateInvestigator struct {
	Client DestinationClient
}

func (d DuplicateInvestigator) Investigate(ctx context.Context, props MappedProps, cause error) DuplicateReport {
	resource := props.Resource()
	field, value := props.UniqueKey()
	log := logging.With().
		Str("resource", resource).
		Int64("external_id", props.ExternalID()).
		Str(field, value).
		Logger()

	existing, err := d.Client.Find(ctx, resource, field, value)
	if err != nil {
		log.Error().Err(err).AnErr("cause", cause).Msg("unknown error while checking duplicate")
		return DuplicateReport{Kind: DuplicateLookupFailed}
	}
	if len(existing) == 0 {
		log.Error().Err(cause).Msg("other validation error")
		return DuplicateReport{Kind: DuplicateUnexplained}
	}

	match := existing[0]
	report := DuplicateReport{Existing: &match}

	// A match with the same external id should have been found by the
	// lookup before create; assumed to be a race with a concurrent import.
	// TODO: check the API logs for corner cases outside concurrent imports before reclassifying.
	if match.ExternalID() == props.ExternalID() {
		report.Kind = DuplicateCornerCase
		log.Warn().Err(cause).Str("_id", match.ID).Msg("potential corner case")
		return report
	}

	fields, err := FieldsOf(props)
	if err != nil {
		log.Error().Err(err).Msg("failed to compare duplicate")
		return DuplicateReport{Kind: DuplicateLookupFailed}
	}
	report.Differences = DiffFields(match.Fields, fields, DiffPolicy{Compare: CompareMapped})
	delete(report.Differences, "id")

	var event *zerolog.Event
	if len(report.Differences) == 0 {
		report.Kind = DuplicateExact
		event = log.Debug()
	} else {
		report.Kind = DuplicatePartial
		event = log.Info().Interface("differences", report.Differences)
	}
	event.
		Int64("existing", match.ExternalID()).
		Str("_id", match.ID).
		Msg(string(report.Kind) + " duplicate")
	return report
}
