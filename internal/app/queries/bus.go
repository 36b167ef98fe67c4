package queries

import (
	"context"
	"fmt"
	"sort"
)

type rawHandler func(ctx context.Context, q Query) (any, error)

// Registry maps query keys to handlers. It is filled once at startup.
type Registry struct {
	handlers map[string]rawHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]rawHandler)}
}

func (r *Registry) Ask(ctx context.Context, q Query) (any, error) {
	h, ok := r.handlers[q.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, q.Key())
	}
	return h(ctx, q)
}

func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Register binds handler to the key reported by the zero value of Q.
func Register[Q Query, R any](r *Registry, handler Handler[Q, R]) {
	if r == nil || handler == nil {
		panic("queries: nil registry or handler")
	}
	var zero Q
	key := zero.Key()
	if key == "" {
		panic("queries: empty query key")
	}
	if _, dup := r.handlers[key]; dup {
		panic("queries: duplicate handler for " + key)
	}
	r.handlers[key] = func(ctx context.Context, raw Query) (any, error) {
		q, ok := raw.(Q)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, key)
		}
		return handler.Handle(ctx, q)
	}
}
