package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.MiddlewareLogger)
	r.Get("/version", s.HandlerVersion)
	r.Post("/shutdown", s.HandlerShutdown)
	r.Get("/tasks", s.HandlerTasks)
	r.Get("/tasks/{id}", s.HandlerTask)
	r.Get("/stream", s.HandlerStream)
	r.Get("/connection", s.HandlerConnection)
	r.Post("/connection/reconnect", s.HandlerReconnect)
	r.Get("/journal", s.HandlerJournal)
	return r
}
