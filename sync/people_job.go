package sync

import (
	"context"

	"github.com/homemade/nbsync/logging"
)

// PeopleJob imports NationBuilder people into the API.
type PeopleJob struct {
	*SyncContext
	Source    PageSource
	Engine    UpsertEngine
	Scheduler Scheduler
}

func NewPeopleJob(sc *SyncContext) (*PeopleJob, error) {
	client := APIFetcherAndUpdater{SyncContext: sc}
	engine, err := newUpsertEngine(sc, client)
	if err != nil {
		return nil, err
	}
	scheduler, err := newScheduler(sc)
	if err != nil {
		return nil, err
	}
	return &PeopleJob{
		SyncContext: sc,
		Source:      NewNationBuilderFetcherAndUpdater(sc),
		Engine:      engine,
		Scheduler:   scheduler,
	}, nil
}

func (j *PeopleJob) Run(ctx context.Context) error {
	return j.Scheduler.Run(ctx, j.Pass)
}

// Pass imports every NationBuilder person once.
func (j *PeopleJob) Pass(ctx context.Context) error {
	return runPass(ctx, j.Config.Concurrency, j.Source.FetchAll(ResourcePeople, j.Config.Paging.PageSize), j.handle)
}

func (j *PeopleJob) handle(ctx context.Context, record Source) {
	props, err := MapPerson(record)
	if IsSkip(err) {
		logSkip(j.Job, ResourcePeople, record, err)
		return
	}
	if err != nil {
		logging.Error().Err(err).Int64("external_id", record.ExternalID()).Msg("failed mapping person")
		return
	}
	// failures are logged by the engine and stop at this record
	_, _ = j.Engine.Upsert(ctx, props)
}
