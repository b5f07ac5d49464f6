// Package runner executes the test-case collection against the search
// endpoint through a bounded worker pool.
package runner

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/search-eval/internal/auth"
	"github.com/sells-group/search-eval/internal/config"
	"github.com/sells-group/search-eval/internal/model"
	"github.com/sells-group/search-eval/pkg/dataverse"
)

const maxBackoff = 30 * time.Second

// TokenSource supplies bearer tokens to query attempts. Satisfied by
// auth.Manager.
type TokenSource interface {
	Acquire(ctx context.Context) (string, error)
	Invalidate(token string)
}

// Dispatcher runs test cases concurrently against the search client,
// classifying every case's outcome. A case's failure never affects its
// siblings; only an authentication failure aborts the run.
type Dispatcher struct {
	client  dataverse.Client
	tokens  TokenSource
	cfg     config.RunnerConfig
	limiter *rate.Limiter
}

// New creates a Dispatcher. Zero config values fall back to safe
// defaults.
func New(client dataverse.Client, tokens TokenSource, cfg config.RunnerConfig) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.MaxThrottleRetries < 0 {
		cfg.MaxThrottleRetries = 0
	}
	if cfg.BackoffBaseMS <= 0 {
		cfg.BackoffBaseMS = 2000
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Dispatcher{
		client:  client,
		tokens:  tokens,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}
}

// Run executes every test case and returns one outcome per case, in
// input order. On an authentication failure the already-collected
// outcomes are returned alongside the error.
func (d *Dispatcher) Run(ctx context.Context, cases []model.TestCase) ([]model.QueryOutcome, error) {
	outcomes := make([]model.QueryOutcome, len(cases))

	var done atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)

	for i := range cases {
		g.Go(func() error {
			outcome, err := d.execute(ctx, cases[i])
			outcomes[i] = outcome

			n := done.Add(1)
			zap.L().Debug("runner: case finished",
				zap.String("test_case_id", cases[i].ID),
				zap.String("outcome", string(outcome.Kind)),
				zap.Int64("completed", n),
				zap.Int("total", len(cases)),
			)
			return err
		})
	}

	err := g.Wait()
	return outcomes, err
}

// execute runs one test case to a terminal outcome. The returned error
// is non-nil only for authentication failures, which poison the whole
// run.
func (d *Dispatcher) execute(ctx context.Context, tc model.TestCase) (model.QueryOutcome, error) {
	outcome := model.QueryOutcome{
		TestCaseID:   tc.ID,
		QuestionType: tc.QuestionType,
	}
	start := time.Now()
	finish := func(kind model.OutcomeKind) model.QueryOutcome {
		outcome.Kind = kind
		outcome.Elapsed = time.Since(start)
		outcome.ElapsedSecs = outcome.Elapsed.Seconds()
		return outcome
	}

	throttles := 0
	authRetried := false
	for {
		if err := d.limiter.Wait(ctx); err != nil {
			outcome.Error = err.Error()
			return finish(model.OutcomeTransportError), nil
		}

		token, err := d.tokens.Acquire(ctx)
		if err != nil {
			outcome.Error = err.Error()
			var authErr *auth.AuthError
			if errors.As(err, &authErr) {
				// Without a token no case can succeed.
				return finish(model.OutcomeTransportError), err
			}
			return finish(model.OutcomeTransportError), nil
		}

		res, err := d.client.Query(ctx, token, tc.QueryText)
		outcome.Attempts++

		if err == nil {
			outcome.Items = res.Items
			outcome.RawPayload = res.Raw
			return finish(model.OutcomeSuccess), nil
		}

		switch {
		case dataverse.IsUnauthorized(err):
			var ue *dataverse.UnauthorizedError
			errors.As(err, &ue)
			outcome.StatusCode = ue.StatusCode
			if !authRetried {
				authRetried = true
				d.tokens.Invalidate(token)
				zap.L().Warn("runner: token rejected, reacquiring",
					zap.String("test_case_id", tc.ID),
				)
				continue
			}
			outcome.Error = err.Error()
			return finish(model.OutcomeTransportError), nil

		case isThrottle(err):
			te, _ := dataverse.AsThrottle(err)
			outcome.StatusCode = te.StatusCode
			if throttles >= d.cfg.MaxThrottleRetries {
				outcome.Error = err.Error()
				return finish(model.OutcomeThrottled), nil
			}
			delay := te.RetryAfter
			if delay <= 0 {
				delay = d.backoff(throttles)
			}
			throttles++
			zap.L().Warn("runner: throttled, backing off",
				zap.String("test_case_id", tc.ID),
				zap.Duration("delay", delay),
				zap.Int("retry", throttles),
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				outcome.Error = ctx.Err().Error()
				return finish(model.OutcomeTransportError), nil
			case <-timer.C:
			}

		case dataverse.IsExecutionError(err):
			outcome.Error = err.Error()
			return finish(model.OutcomeExecutionError), nil

		default:
			outcome.Error = err.Error()
			return finish(model.OutcomeTransportError), nil
		}
	}
}

func isThrottle(err error) bool {
	_, ok := dataverse.AsThrottle(err)
	return ok
}

// backoff computes the nth throttle delay: exponential from the base
// with ±25% jitter, capped.
func (d *Dispatcher) backoff(n int) time.Duration {
	delay := float64(d.cfg.BackoffBaseMS) * float64(time.Millisecond) * math.Pow(2, float64(n))
	if delay > float64(maxBackoff) {
		delay = float64(maxBackoff)
	}
	jitter := delay * 0.25
	delay += (rand.Float64()*2 - 1) * jitter
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
