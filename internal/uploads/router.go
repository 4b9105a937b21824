package uploads

import (
	"context"
	"log/slog"

	"hoist/internal/events"
	"hoist/internal/logging"
)

// Router is the single consumer of the transport's event channel.
type Router struct {
	source      <-chan events.Event
	hub         *events.Hub
	coordinator *Coordinator
	logger      *slog.Logger
	sampler     *logging.ProgressSampler
	forget      func(id string)
}

// NewRouter connects source to hub and coordinator.
func NewRouter(source <-chan events.Event, hub *events.Hub, coordinator *Coordinator, logger *slog.Logger) *Router {
	return &Router{
		source:      source,
		hub:         hub,
		coordinator: coordinator,
		logger:      logging.NewComponentLogger(logger, "router"),
		sampler:     logging.NewProgressSampler(25),
	}
}

// Run routes events until source closes or ctx ends.
func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-r.source:
			if !ok {
				return nil
			}
			r.route(ctx, evt)
		}
	}
}

// route publishes evt to listeners and then, for terminal events, lets the
// coordinator drop the entry and advance. Ids that were never queued are a
// no-op for the coordinator.
func (r *Router) route(ctx context.Context, evt events.Event) {
	r.log(evt)
	r.hub.Publish(evt)
	if evt.Type.Terminal() {
		r.sampler.Forget(evt.ID)
		r.coordinator.OnTerminal(ctx, evt.ID)
		if r.forget != nil {
			r.forget(evt.ID)
		}
	}
}

func (r *Router) log(evt events.Event) {
	id := logging.String(logging.FieldUploadID, evt.ID)
	switch evt.Type {
	case events.TypeProgress:
		if r.sampler.ShouldLog(evt.ID, evt.Progress) {
			r.logger.Debug("upload progress", id, logging.Int("percent", evt.Progress))
		}
	case events.TypeCompleted:
		r.logger.Info("upload finished",
			id,
			logging.String(logging.FieldEventType, "upload_completed"),
			logging.Int("status", evt.StatusCode),
		)
	case events.TypeError:
		logging.WarnWithContext(r.logger, "upload finished with error", "upload_failed",
			id,
			logging.String("error", evt.Error),
			logging.Int("status", evt.StatusCode),
			logging.String(logging.FieldErrorHint, "inspect the error and resubmit if needed"),
			logging.String(logging.FieldImpact, "file was not uploaded"),
		)
	case events.TypeCancelled:
		r.logger.Info("upload cancelled", id, logging.String(logging.FieldEventType, "upload_cancelled"))
	}
}
