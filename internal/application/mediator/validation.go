package mediator

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// Validatable lets a request carry validation beyond what struct tags can
// express (cross-field rules, repository-free invariants).
type Validatable interface {
	Validate() error
}

// ValidationMiddleware checks every request before its handler runs: first
// `validate` struct tags, then the request's own Validate method when it has
// one. Failures short-circuit the chain with InvalidParams.
func ValidationMiddleware() Middleware {
	validate := validator.New()

	return func(ctx context.Context, request Request, next HandlerFunc) (Response, error) {
		if err := validate.Struct(request); err != nil {
			if verrs, ok := err.(validator.ValidationErrors); ok {
				return nil, shared.NewDomainError(shared.ErrInvalidParams, formatFieldErrors(verrs))
			}
			// Non-struct requests are a wiring bug, not a caller error.
			return nil, fmt.Errorf("request %s is not validatable: %w", RequestName(request), err)
		}

		if v, ok := request.(Validatable); ok {
			if err := v.Validate(); err != nil {
				return nil, shared.WrapDomainError(shared.ErrInvalidParams, "invalid request", err)
			}
		}

		return next(ctx, request)
	}
}

func formatFieldErrors(verrs validator.ValidationErrors) string {
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, fmt.Sprintf("field %s failed %s", e.Field(), e.Tag()))
	}
	return strings.Join(messages, "; ")
}
