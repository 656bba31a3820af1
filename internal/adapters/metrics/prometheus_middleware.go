package metrics

import (
	"context"
	"time"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
)

// PrometheusMiddleware records execution duration and outcome for every
// command and query dispatched through the mediator. Passing a nil collector
// disables recording without changing dispatch behavior.
func PrometheusMiddleware(collector *CommandMetricsCollector) mediator.Middleware {
	return func(ctx context.Context, request mediator.Request, next mediator.HandlerFunc) (mediator.Response, error) {
		if collector == nil {
			return next(ctx, request)
		}

		commandName := mediator.RequestName(request)
		start := time.Now()

		response, err := next(ctx, request)

		collector.RecordCommandExecution(commandName, time.Since(start).Seconds(), err == nil)

		return response, err
	}
}
