package sync

import (
	"context"
	"fmt"

	"github.com/homemade/nbsync/logging"
)

// ConflictResolver patches records with optimistic concurrency. A patch
// rejected for a stale etag is retried exactly once with the etag of a
// freshly fetched copy.
type ConflictResolver struct {
	Client DestinationClient
}

// PatchBuilder computes a patch from a record. A nil patch means the record
// needs no change.
type PatchBuilder func(record DestinationRecord) map[string]interface{}

// Patch sends the same patch on the first attempt and on the retry.
func (c ConflictResolver) Patch(ctx context.Context, resource string, record DestinationRecord, patch map[string]interface{}) error {
	return c.PatchWith(ctx, resource, record, func(DestinationRecord) map[string]interface{} {
		return patch
	})
}

// PatchWith builds the patch from record, and on a 412 rebuilds it from the
// fresh copy, so patches derived from current values (such as adding to a
// set) keep the writes that caused the conflict.
func (c ConflictResolver) PatchWith(ctx context.Context, resource string, record DestinationRecord, build PatchBuilder) error {
	patch := build(record)
	if patch == nil {
		return nil
	}
	err := c.Client.Patch(ctx, resource, record.ID, record.Etag, patch)
	if err == nil || !IsConcurrencyConflict(err) {
		return err
	}

	logging.Debug().Str("resource", resource).Str("id", record.ID).Msg("failed patching but retrying")

	var secondEtag string
	fresh, err := c.Client.GetFresh(ctx, resource, record.ID)
	if err == nil {
		secondEtag = fresh.Etag
		patch = build(fresh)
		if patch == nil {
			return nil
		}
		err = c.Client.Patch(ctx, resource, record.ID, secondEtag, patch)
	}
	if err != nil {
		logging.Warn().
			Err(err).
			Str("resource", resource).
			Str("id", record.ID).
			Interface("patch", patch).
			Str("first_etag", record.Etag).
			Str("second_etag", secondEtag).
			Msg("failed patching after retry")
		return fmt.Errorf("patching %s/%s after retry: %w", resource, record.ID, err)
	}
	return nil
}
