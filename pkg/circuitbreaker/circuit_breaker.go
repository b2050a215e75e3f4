// Package circuitbreaker short-circuits calls to a server that keeps failing. It never retries.
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/metric"
	"github.com/failsafe-go/failsafe-go"
	fscb "github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/rs/zerolog/log"
)

// ErrOpen is returned without running the task while the breaker is open.
var ErrOpen = fscb.ErrOpen

type CircuitBreaker interface {
	// Execute runs task unless the breaker is open. Errors returned by task count as failures,
	// except a cancellation of the caller's context.
	Execute(ctx context.Context, task func(context.Context) error) error
}

// New returns a failsafe-go backed breaker, or a pass-through one when config is nil or disabled.
// config must have passed Validate.
func New(config *Config) CircuitBreaker {
	if config == nil || !config.Enabled {
		return passThrough{}
	}
	return newFailsafeBreaker(config)
}

type passThrough struct{}

func (passThrough) Execute(ctx context.Context, task func(context.Context) error) error {
	return task(ctx)
}

type failsafeBreaker struct {
	breaker fscb.CircuitBreaker[any]
}

func newFailsafeBreaker(config *Config) *failsafeBreaker {
	builder := fscb.Builder[any]()
	if config.FailureRateThreshold > 0 {
		builder = builder.WithFailureRateThreshold(uint(config.FailureRateThreshold), uint(config.FailureRateMinimumWindow),
			time.Duration(config.FailureRateWindowInMs)*time.Millisecond)
	} else {
		builder = builder.WithFailureThresholdRatio(uint(config.FailureCountThreshold), uint(config.FailureCountWindow))
	}
	cb := builder.
		HandleIf(isFailure).
		WithSuccessThresholdRatio(uint(config.SuccessCountThreshold), uint(config.SuccessCountWindow)).
		WithDelay(time.Duration(config.WithDelayInMS) * time.Millisecond).
		OnStateChanged(func(event fscb.StateChangedEvent) {
			log.Debug().Msgf("Circuit Breaker '%s' changed state from %s to %s", config.Name, event.OldState, event.NewState)
			metric.Incr(metric.CircuitBreakerStateChange, metric.BuildTag(
				metric.NewTag(metric.TagCBName, config.Name),
				metric.NewTag(metric.TagCBFromState, event.OldState.String()),
				metric.NewTag(metric.TagCBToState, event.NewState.String()),
			))
		}).
		Build()
	return &failsafeBreaker{breaker: cb}
}

func (b *failsafeBreaker) Execute(ctx context.Context, task func(context.Context) error) error {
	return failsafe.Run(func() error {
		return task(ctx)
	}, b.breaker)
}

func isFailure(_ any, err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}
