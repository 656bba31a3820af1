package logging

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
)

// Middleware logs every request's execution: start, completion with duration,
// or failure with the error. Lines go to the daemon logger; when the request
// runs inside a container, failures are mirrored into the container's log so
// `astro daemon logs` shows why an iteration died.
func Middleware(log zerolog.Logger) mediator.Middleware {
	return func(ctx context.Context, request mediator.Request, next mediator.HandlerFunc) (mediator.Response, error) {
		name := mediator.RequestName(request)

		log.Debug().Str("request", name).Msg("Executing " + name)
		start := time.Now()

		response, err := next(ctx, request)

		elapsed := time.Since(start)
		if err != nil {
			log.Error().Str("request", name).Dur("elapsed", elapsed).Err(err).Msg("Failed " + name)
			LoggerFromContext(ctx).Log("error", "Failed "+name+": "+err.Error(), map[string]interface{}{
				"request":    name,
				"elapsed_ms": elapsed.Milliseconds(),
			})
			return nil, err
		}

		log.Debug().Str("request", name).Dur("elapsed", elapsed).Msg("Completed " + name)
		return response, nil
	}
}
