package middleware

import (
	"context"
	"log/slog"

	"equiprent/internal/app/commands"
	"equiprent/internal/app/outbox"
)

// OutboxFlush publishes the events recorded by a command once it succeeds.
// A failed command discards them. Publish failures are logged and do not undo
// the command, whose local effect has already happened.
func OutboxFlush(box *outbox.Buffer, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ctx = box.Begin(ctx)
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				logger.Warn("event publish failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
