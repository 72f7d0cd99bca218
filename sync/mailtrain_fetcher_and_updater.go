package sync

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/homemade/nbsync/logging"
	"github.com/homemade/nbsync/metrics"
)

const mailtrainSource = "mailtrain"

// MailingClient subscribes and unsubscribes people from the mailing list.
type MailingClient interface {
	Send(ctx context.Context, subscription Subscription) error
}

// MailtrainFetcherAndUpdater calls the Mailtrain API through a circuit
// breaker. Rejected addresses (4xx) count as successful calls: only server
// and network failures open the circuit.
// It embeds *SyncContext for shared sync configuration.
type MailtrainFetcherAndUpdater struct {
	*SyncContext
	cb *gobreaker.CircuitBreaker[struct{}]
}

var _ MailingClient = (*MailtrainFetcherAndUpdater)(nil)

func NewMailtrainFetcherAndUpdater(sc *SyncContext) *MailtrainFetcherAndUpdater {
	name := "mailtrain-api"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsMailingRejected(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("name", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &MailtrainFetcherAndUpdater{SyncContext: sc, cb: cb}
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// MailtrainAPIBuilder returns a new requests.Builder configured for the Mailtrain API.
func (m *MailtrainFetcherAndUpdater) MailtrainAPIBuilder() *requests.Builder {
	return m.newAPIBuilder(m.Config.API.Endpoints.Mailtrain, mailtrainSource)
}

// Send posts the subscription to api/<subscribe|unsubscribe>/<list>.
// A 4xx response returns a *MailingRejectedError.
func (m *MailtrainFetcherAndUpdater) Send(ctx context.Context, subscription Subscription) error {
	_, err := m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.MailtrainAPIBuilder().
			Pathf("api/%s/%s", subscription.Action, m.Config.API.Ids.MailtrainList).
			Param("access_token", m.Config.API.Keys.Mailtrain).
			BodyJSON(subscription.MergeFields()).
			AddValidator(checkMailtrainStatus(subscription.Email)).
			Fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logging.Warn().Err(err).Msg("mailing request rejected by circuit breaker")
	}
	return err
}

func checkMailtrainStatus(email string) requests.ResponseHandler {
	return func(res *http.Response) error {
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			return nil
		}
		b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		if res.StatusCode >= 400 && res.StatusCode < 500 {
			return &MailingRejectedError{Email: email, StatusCode: res.StatusCode, Body: string(b)}
		}
		return &APIError{Resource: mailtrainSource, StatusCode: res.StatusCode, Body: string(b)}
	}
}
