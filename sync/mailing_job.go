package sync

import (
	"context"

	"github.com/homemade/nbsync/logging"
	"github.com/homemade/nbsync/metrics"
)

// MailingJob pushes every API person's subscription state to the mailing
// list, and flags people whose address the mailing platform rejects.
type MailingJob struct {
	*SyncContext
	Destination DestinationClient
	Mailing     MailingClient
	Resolver    ConflictResolver
	Scheduler   Scheduler
}

func NewMailingJob(sc *SyncContext) (*MailingJob, error) {
	client := APIFetcherAndUpdater{SyncContext: sc}
	scheduler, err := newScheduler(sc)
	if err != nil {
		return nil, err
	}
	return &MailingJob{
		SyncContext: sc,
		Destination: client,
		Mailing:     NewMailtrainFetcherAndUpdater(sc),
		Resolver:    ConflictResolver{Client: client},
		Scheduler:   scheduler,
	}, nil
}

func (j *MailingJob) Run(ctx context.Context) error {
	return j.Scheduler.Run(ctx, j.Pass)
}

// Pass sends the subscription of every API person once.
func (j *MailingJob) Pass(ctx context.Context) error {
	return runPass(ctx, j.Config.Concurrency, j.Destination.FetchAll(ResourcePeople, j.Config.Paging.PageSize), j.handle)
}

func (j *MailingJob) handle(ctx context.Context, record Source) {
	person := destinationRecordFrom(record.data)
	subscription, err := MapSubscription(record, j.Config.Mailing.Tags)
	if IsSkip(err) {
		logSkip(j.Job, ResourcePeople, record, err)
		return
	}

	log := logging.With().Str("_id", person.ID).Str("email", subscription.Email).Logger()
	err = j.Mailing.Send(ctx, subscription)
	if err == nil {
		metrics.RecordsProcessed.WithLabelValues(j.Job, ResourcePeople, subscription.Action).Inc()
		return
	}
	if !IsMailingRejected(err) {
		metrics.RecordsProcessed.WithLabelValues(j.Job, ResourcePeople, string(OutcomeFailed)).Inc()
		log.Error().Err(err).Msg("Error updating mailing list")
		return
	}

	metrics.RecordsProcessed.WithLabelValues(j.Job, ResourcePeople, string(OutcomeRejected)).Inc()
	log.Warn().Err(err).Msg("address rejected, marking as bounced")
	err = j.Resolver.Patch(ctx, ResourcePeople, person, map[string]interface{}{"bounced": true})
	if err != nil {
		log.Error().Err(err).Msg("Error while marking as bounced")
	}
}
