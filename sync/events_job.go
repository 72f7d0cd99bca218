package sync

import (
	"context"
	"fmt"

	"github.com/homemade/nbsync/logging"
)

// EventsJob imports NationBuilder event pages into the API as events or
// groups, depending on their calendar.
type EventsJob struct {
	*SyncContext
	Source    PageSource
	Mapper    EventMapper
	Engine    UpsertEngine
	Scheduler Scheduler
}

func NewEventsJob(sc *SyncContext) (*EventsJob, error) {
	client := APIFetcherAndUpdater{SyncContext: sc}
	engine, err := newUpsertEngine(sc, client)
	if err != nil {
		return nil, err
	}
	scheduler, err := newScheduler(sc)
	if err != nil {
		return nil, err
	}
	return &EventsJob{
		SyncContext: sc,
		Source:      NewNationBuilderFetcherAndUpdater(sc),
		Mapper:      EventMapper{Categories: DefaultCategories, PhoneRegion: sc.Config.Mapping.PhoneRegion},
		Engine:      engine,
		Scheduler:   scheduler,
	}, nil
}

func (j *EventsJob) Run(ctx context.Context) error {
	return j.Scheduler.Run(ctx, j.Pass)
}

// Pass imports every event page of the nation once.
func (j *EventsJob) Pass(ctx context.Context) error {
	collection := fmt.Sprintf("sites/%s/pages/events", j.Config.API.Ids.NationSlug)
	return runPass(ctx, j.Config.Concurrency, j.Source.FetchAll(collection, j.Config.Paging.PageSize), j.handle)
}

func (j *EventsJob) handle(ctx context.Context, record Source) {
	props, err := j.Mapper.Map(record)
	if IsSkip(err) {
		logSkip(j.Job, ResourceEvents, record, err)
		return
	}
	if err != nil {
		logging.Error().Err(err).Int64("external_id", record.ExternalID()).Msg("failed mapping event")
		return
	}
	_, _ = j.Engine.Upsert(ctx, props)
}
