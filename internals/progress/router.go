package progress

import (
	"encoding/json"
	"log/slog"

	"github.com/clipmate/clipmate/internals/schemas"
)

// Router is the single entry point for raw frames off the stream: parse,
// validate the minimal shape, and feed the store. Nothing that happens here
// may take the stream down.
type Router struct {
	store  *Store
	logger *slog.Logger
}

func NewRouter(store *Store, logger *slog.Logger) *Router {
	return &Router{store: store, logger: logger}
}

// Dispatch parses one raw frame and applies it. It returns the parsed event
// when the frame was accepted, nil when it was dropped. Invalid JSON is
// logged and dropped; a missing task_id is dropped silently.
func (r *Router) Dispatch(raw []byte) *schemas.ProgressEvent {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("Panic applying progress frame", "error", recovered)
		}
	}()

	var ev schemas.ProgressEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		r.logger.Warn("Failed to parse progress frame", "error", err)
		return nil
	}
	if ev.TaskID == "" {
		return nil
	}
	r.store.Apply(&ev)
	return &ev
}
