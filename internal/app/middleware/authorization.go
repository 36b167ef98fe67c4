package middleware

import (
	"context"
	"errors"

	"equiprent/internal/app/commands"
)

var ErrForbidden = errors.New("middleware: admin privileges required")

// Actor identifies who issued a command: an authenticated admin over HTTP or an
// internal consumer.
type Actor struct {
	Name  string
	Admin bool
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// AdminOnly allows a message only when the context carries an admin actor.
type AdminOnly struct{}

func (AdminOnly) Authorize(ctx context.Context, message any) error {
	if actor, ok := ActorFrom(ctx); ok && actor.Admin {
		return nil
	}
	return ErrForbidden
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}
