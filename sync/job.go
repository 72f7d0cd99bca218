package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/homemade/nbsync/logging"
	"github.com/homemade/nbsync/metrics"
)

// Job is one of the sync processes, run until ctx is cancelled or a pass fails.
type Job interface {
	Run(ctx context.Context) error
}

// NewJob wires the job selected by sc.Job with the real remotes.
func NewJob(sc *SyncContext) (Job, error) {
	mustBeInitialised()
	switch sc.Job {
	case JobImportPeople:
		return NewPeopleJob(sc)
	case JobImportEvents:
		return NewEventsJob(sc)
	case JobImportRSVPs:
		return NewRSVPJob(sc)
	case JobSyncMailing:
		return NewMailingJob(sc)
	default:
		return nil, fmt.Errorf("unsupported job %q", sc.Job)
	}
}

func newScheduler(sc *SyncContext) (Scheduler, error) {
	delay, err := sc.Config.Schedule.CycleDelay()
	if err != nil {
		return Scheduler{}, fmt.Errorf("invalid cycle delay %w", err)
	}
	return Scheduler{Name: sc.Job, Forever: sc.Config.Schedule.Forever, Delay: delay}, nil
}

func newUpsertEngine(sc *SyncContext, client DestinationClient) (UpsertEngine, error) {
	policies, err := sc.Config.Policies()
	if err != nil {
		return UpsertEngine{}, err
	}
	return NewUpsertEngine(sc.Job, client, policies), nil
}

// runPass walks every page from first, handing each record to handle
// through a pool of the given size. Every record of a page is dispatched
// before the next page is fetched, and the pool is drained before returning.
func runPass(ctx context.Context, concurrency int, first PageFunc, handle func(ctx context.Context, record Source)) error {
	pool := NewWorkPool(concurrency)
	defer pool.Wait()
	return Walk(ctx, first, func(page Page) error {
		for _, record := range page.Records {
			if err := pool.Go(ctx, func(ctx context.Context) { handle(ctx, record) }); err != nil {
				return err
			}
		}
		logging.Debug().Str("path", page.Path).Int("records", len(page.Records)).Msg("Handled page")
		return nil
	})
}

// logSkip records a record the mapper declined to import.
func logSkip(job string, resource string, record Source, err error) {
	metrics.RecordsProcessed.WithLabelValues(job, resource, string(OutcomeSkipped)).Inc()
	event := logging.Debug()
	if errors.Is(err, ErrUnknownCategory) {
		event = logging.Info()
	}
	event.Str("resource", resource).Int64("external_id", record.ExternalID()).Err(err).Msg("skipped")
}
