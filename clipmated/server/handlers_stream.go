package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const streamHeartbeat = 30 * time.Second

// HandlerStream pushes the projected task view as server-sent events: one
// snapshot immediately, then one per store commit. Commits are coalesced
// when the client is slow; the latest snapshot always wins.
func (s *Server) HandlerStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeInternal, "Streaming unsupported", nil), Render.Status(http.StatusInternalServerError))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ticks, cancel := s.store.Subscribe()
	defer cancel()

	send := func() bool {
		view := s.store.Project()
		data, err := json.Marshal(view)
		if err != nil {
			s.Base.Logger.Error("Failed to encode view", "error", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticks:
			if !send() {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
