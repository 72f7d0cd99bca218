package sync

import (
	"context"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/homemade/nbsync/logging"
)

// RSVPSource lists the RSVPs of a NationBuilder event.
type RSVPSource interface {
	FetchRSVPs(eventID int64, pageSize int) PageFunc
}

// RSVPJob copies NationBuilder RSVPs onto the API: each attendee gets the
// event added to their events (or groups), and each event its participant
// count. Cycles alternate between events and groups.
type RSVPJob struct {
	*SyncContext
	Source      RSVPSource
	Destination DestinationClient
	Resolver    ConflictResolver
	Cache       *PersonURLCache
	Scheduler   Scheduler

	cycles atomic.Int64
}

var rsvpResources = []string{ResourceEvents, ResourceGroups}

func NewRSVPJob(sc *SyncContext) (*RSVPJob, error) {
	client := APIFetcherAndUpdater{SyncContext: sc}
	scheduler, err := newScheduler(sc)
	if err != nil {
		return nil, err
	}
	return &RSVPJob{
		SyncContext: sc,
		Source:      NewNationBuilderFetcherAndUpdater(sc),
		Destination: client,
		Resolver:    ConflictResolver{Client: client},
		Cache:       &PersonURLCache{},
		Scheduler:   scheduler,
	}, nil
}

func (j *RSVPJob) Run(ctx context.Context) error {
	return j.Scheduler.Run(ctx, j.Pass)
}

// Pass updates the RSVPs of every event, or every group, alternately.
func (j *RSVPJob) Pass(ctx context.Context) error {
	resource := rsvpResources[(j.cycles.Add(1)-1)%int64(len(rsvpResources))]
	logging.Info().Str("resource", resource).Msg("Updating rsvps")
	return runPass(ctx, j.Config.Concurrency, j.Destination.FetchAll(resource, j.Config.Paging.PageSize), func(ctx context.Context, record Source) {
		j.handleEvent(ctx, resource, destinationRecordFrom(record.data))
	})
}

func (j *RSVPJob) handleEvent(ctx context.Context, resource string, event DestinationRecord) {
	id := event.ExternalID()
	log := logging.With().Str("resource", resource).Int64("external_id", id).Str("_id", event.ID).Logger()

	participants := 0
	err := Walk(ctx, j.Source.FetchRSVPs(id, j.Config.Paging.RSVPPageSize), func(page Page) error {
		for _, rsvp := range page.Records {
			personID, _ := rsvp.IntForPath("person_id")
			j.addRSVP(ctx, resource, event.ID, personID)
			participants++
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Error while fetching rsvps")
		return
	}

	if current, ok := event.Source.IntForPath("participants"); ok && current == int64(participants) {
		return
	}
	err = j.Resolver.Patch(ctx, resource, event, map[string]interface{}{"participants": participants})
	if err != nil {
		log.Error().Err(err).Msg("Error while updating participants")
	}
}

// addRSVP adds the event _id to the person's events or groups.
func (j *RSVPJob) addRSVP(ctx context.Context, resource string, eventID string, personID int64) {
	log := logging.With().Str("resource", resource).Str("event", eventID).Int64("person_id", personID).Logger()

	person, err := j.person(ctx, personID)
	if IsNotFound(err) {
		log.Debug().Msg("person not imported yet")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Error while fetching person")
		return
	}
	if email, _ := person.Source.StringForPath("email"); email == "" {
		return
	}

	if err = j.Resolver.PatchWith(ctx, ResourcePeople, person, addToSet(resource, eventID)); err != nil {
		log.Error().Err(err).Msg("Error while updating person rsvps")
	}
}

// addToSet patches field with id appended to its current values, or not at
// all when id is already there.
func addToSet(field string, id string) PatchBuilder {
	return func(record DestinationRecord) map[string]interface{} {
		values := record.Source.StringsForPath(field)
		if slices.Contains(values, id) {
			return nil
		}
		return map[string]interface{}{field: append(values, id)}
	}
}

// person fetches a person through the URL cache, looking the person up by
// NationBuilder id on a miss.
func (j *RSVPJob) person(ctx context.Context, personID int64) (DestinationRecord, error) {
	if url, ok := j.Cache.Load(personID); ok {
		return j.Destination.Get(ctx, ResourcePeople, strings.TrimPrefix(url, ResourcePeople+"/"))
	}
	person, err := j.Destination.Get(ctx, ResourcePeople, externalKey(personID))
	if err != nil {
		return person, err
	}
	j.Cache.LoadOrStore(personID, PersonURL(person))
	return person, nil
}
