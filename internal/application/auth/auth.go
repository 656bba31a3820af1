package auth

import (
	"context"
	"fmt"
	"reflect"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

type authContextKey int

const playerTokenKey authContextKey = iota + 1000

// WithPlayerToken injects a player's API bearer token into the context.
func WithPlayerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, playerTokenKey, token)
}

// PlayerTokenFromContext extracts the bearer token placed by the middleware.
func PlayerTokenFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(playerTokenKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("player token not found in context")
	}
	return token, nil
}

// PlayerTokenMiddleware resolves the player a request acts for and injects
// their API token into the context. Requests identify the player through a
// PlayerID or AgentSymbol field, found reflectively, so command DTOs don't
// need to implement an interface for it. Requests without either field pass
// through untouched.
func PlayerTokenMiddleware(playerRepo player.Repository) mediator.Middleware {
	return func(ctx context.Context, request mediator.Request, next mediator.HandlerFunc) (mediator.Response, error) {
		playerID, agentSymbol := extractPlayerIdentifier(request)

		var p *player.Player
		var err error

		switch {
		case !playerID.IsZero():
			p, err = playerRepo.FindByID(ctx, playerID)
			if err != nil {
				return nil, shared.WrapDomainError(shared.ErrPlayerNotFound,
					fmt.Sprintf("player %s", playerID.String()), err)
			}
		case agentSymbol != "":
			p, err = playerRepo.FindByAgentSymbol(ctx, agentSymbol)
			if err != nil {
				return nil, shared.WrapDomainError(shared.ErrPlayerNotFound,
					fmt.Sprintf("agent %s", agentSymbol), err)
			}
		}

		if p != nil {
			ctx = WithPlayerToken(ctx, p.Token)
		}

		return next(ctx, request)
	}
}

// extractPlayerIdentifier reads PlayerID and AgentSymbol fields off the
// request struct. PlayerID may be shared.PlayerID, int, or *int; zero and
// nil values mean "not provided".
func extractPlayerIdentifier(request mediator.Request) (shared.PlayerID, string) {
	var playerID shared.PlayerID
	var agentSymbol string

	v := reflect.ValueOf(request)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return shared.PlayerID{}, ""
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return shared.PlayerID{}, ""
	}

	if f := v.FieldByName("PlayerID"); f.IsValid() {
		switch {
		case f.Type() == reflect.TypeOf(shared.PlayerID{}):
			playerID = f.Interface().(shared.PlayerID)
		case f.Kind() == reflect.Int:
			if iv := int(f.Int()); iv > 0 {
				playerID, _ = shared.NewPlayerID(iv)
			}
		case f.Kind() == reflect.Ptr && f.Type().Elem().Kind() == reflect.Int:
			if !f.IsNil() {
				if iv := int(f.Elem().Int()); iv > 0 {
					playerID, _ = shared.NewPlayerID(iv)
				}
			}
		}
	}

	if f := v.FieldByName("AgentSymbol"); f.IsValid() && f.Kind() == reflect.String {
		agentSymbol = f.String()
	}

	return playerID, agentSymbol
}
