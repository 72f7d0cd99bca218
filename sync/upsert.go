package sync

import (
	"context"
	"fmt"
	"strconv"

	"github.com/homemade/nbsync/logging"
	"github.com/homemade/nbsync/metrics"
)

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomePatched   Outcome = "patched"
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeRejected is a create refused by API validation, handed to the DuplicateInvestigator.
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
	OutcomeSkipped  Outcome = "skipped"
)

// externalKey is the API lookup key of an imported record.
func externalKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// UpsertEngine creates a record when the API has none for its external id,
// and otherwise patches it when its fields differ. It never deletes and
// writes at most one record per call.
type UpsertEngine struct {
	Job          string
	Client       DestinationClient
	Resolver     ConflictResolver
	Investigator DuplicateInvestigator
	// Policies is keyed by resource; resources without one use the zero DiffPolicy.
	Policies map[string]DiffPolicy
}

func NewUpsertEngine(job string, client DestinationClient, policies map[string]DiffPolicy) UpsertEngine {
	return UpsertEngine{
		Job:          job,
		Client:       client,
		Resolver:     ConflictResolver{Client: client},
		Investigator: DuplicateInvestigator{Client: client},
		Policies:     policies,
	}
}

func (u UpsertEngine) Upsert(ctx context.Context, props MappedProps) (Outcome, error) {
	outcome, err := u.upsert(ctx, props)
	metrics.RecordsProcessed.WithLabelValues(u.Job, props.Resource(), string(outcome)).Inc()
	return outcome, err
}

func (u UpsertEngine) upsert(ctx context.Context, props MappedProps) (Outcome, error) {
	resource := props.Resource()
	id := props.ExternalID()
	log := logging.With().Str("resource", resource).Int64("external_id", id).Logger()

	fields, err := FieldsOf(props)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%s %d: %w", resource, id, err)
	}

	existing, err := u.Client.Get(ctx, resource, externalKey(id))
	if err != nil && !IsNotFound(err) {
		log.Error().Err(err).Msg("failed fetching")
		return OutcomeFailed, err
	}

	if err != nil {
		err = u.Client.Create(ctx, resource, fields)
		if IsValidation(err) {
			u.Investigator.Investigate(ctx, props, err)
			return OutcomeRejected, nil
		}
		if err != nil {
			log.Error().Err(err).Msg("error while creating")
			return OutcomeFailed, err
		}
		log.Debug().Msg("created")
		return OutcomeCreated, nil
	}

	policy := u.Policies[resource]
	diff := DiffFields(existing.Fields, fields, policy)
	if len(diff) == 0 {
		log.Debug().Str("_id", existing.ID).Msg("nothing changed")
		return OutcomeUnchanged, nil
	}

	log.Debug().Str("_id", existing.ID).Interface("differences", diff).Msg("patching")
	err = u.Resolver.Patch(ctx, resource, existing, PatchFor(diff, fields, policy))
	if err != nil {
		log.Error().Err(err).Str("_id", existing.ID).Msg("error while patching")
		return OutcomeFailed, err
	}
	return OutcomePatched, nil
}
