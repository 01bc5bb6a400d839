package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clipmate/clipmate/internals/journal"
	"github.com/clipmate/clipmate/internals/progress"
)

func (s *Server) HandlerVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.Base.Config.Version))
}

func (s *Server) HandlerShutdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("shutting down"))
	s.Shutdown()
}

func (s *Server) HandlerTasks(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, s.store.Project())
}

func (s *Server) HandlerTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, ok := s.store.Get(id)
	if !ok {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeNotFound, "Unknown task", nil), Render.Status(http.StatusNotFound))
		return
	}
	RenderJSON(w, r, progress.TaskView{Task: task, Percent: task.Percent()})
}

func (s *Server) HandlerConnection(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, s.connector.Status())
}

func (s *Server) HandlerReconnect(w http.ResponseWriter, r *http.Request) {
	s.connector.Reconnect()
	RenderJSON(w, r, s.connector.Status(), Render.Status(http.StatusAccepted))
}

func (s *Server) HandlerJournal(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeValidationFailed, "limit must be a positive integer", nil), Render.Status(http.StatusBadRequest))
			return
		}
		limit = parsed
	}

	frames, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeInternal, "Failed to read journal", nil), Render.Status(http.StatusInternalServerError))
		return
	}
	if frames == nil {
		frames = []journal.Frame{}
	}
	RenderJSON(w, r, frames)
}
