package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/clipmate/clipmate/clipmated/core"
	"github.com/clipmate/clipmate/internals/assert"
	"github.com/clipmate/clipmate/internals/journal"
	"github.com/clipmate/clipmate/internals/logbuf"
	"github.com/clipmate/clipmate/internals/progress"
	"github.com/clipmate/clipmate/internals/stream"
	"github.com/clipmate/clipmate/sdk"
)

// Seam so tests can substitute an in-memory transport.
var newTransport = stream.NewWSTransport

type Server struct {
	Base       *core.Base
	Logbuf     *logbuf.Logger
	store      *progress.Store
	events     *progress.Router
	journal    *journal.Journal
	connector  *stream.Connector
	httpServer *http.Server

	mu        sync.Mutex
	lastState stream.State
}

func New() *Server {
	base := core.New()

	journalPath := filepath.Join(base.Config.Server.DataDir, "journal", "frames.db")
	err := os.MkdirAll(filepath.Dir(journalPath), 0o755)
	assert.AssertNil(err, "[SERVER] Failed to create journal directory")
	frames, err := journal.New(journal.Config{
		Path: journalPath,
		Keep: base.Config.Server.JournalKeep,
	})
	assert.AssertNil(err, "[SERVER] Failed to initialize frame journal")

	store := progress.NewStore(progress.DefaultStageTables(), base.Config.Tasks.Priority, base.Logger)

	server := &Server{
		Base: base,
		Logbuf: logbuf.New(
			slog.String("version", base.Config.Version),
			slog.Int("port", base.Env.PORT),
		),
		store:   store,
		events:  progress.NewRouter(store, base.Logger),
		journal: frames,
	}

	producerURL := base.Config.Producer.URL
	if base.Env.PRODUCER_URL != "" {
		producerURL = base.Env.PRODUCER_URL
	}
	server.connector = stream.NewConnector(stream.Config{
		Transport: newTransport(producerURL),
		Backoff: stream.BackoffConfig{
			Base: time.Duration(base.Config.Producer.ReconnectBaseMS) * time.Millisecond,
			Max:  time.Duration(base.Config.Producer.ReconnectMaxMS) * time.Millisecond,
		},
		OnEvent:  server.handleFrame,
		OnStatus: server.handleStreamStatus,
		Logger:   base.Logger,
	})

	return server
}

// handleFrame feeds one raw frame through the event router and journals it
// when it was accepted. Journal failures never interrupt the stream.
func (s *Server) handleFrame(raw []byte) {
	ev := s.events.Dispatch(raw)
	if ev == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.journal.Append(ctx, ev.TaskID, ev.Kind, raw); err != nil {
		s.Base.Logger.Warn("Failed to journal frame", "error", err, "task_id", ev.TaskID)
	}
}

// handleStreamStatus logs connection state transitions. Countdown ticks
// re-emit the same state and stay out of the log.
func (s *Server) handleStreamStatus(status stream.Status) {
	s.mu.Lock()
	changed := status.State != s.lastState
	s.lastState = status.State
	s.mu.Unlock()
	if changed {
		s.Base.Logger.Info("Stream state changed", "state", status.State, "attempts", status.Attempts)
	}
}

func (s *Server) SafeStart() error {
	if sdk.IsRunning(s.Base.Env.BASE_URL) {
		return nil
	}

	go func() {
		s.Base.Logger.Info("starting server")
		err := s.Start()
		if err != nil {
			log.Fatal("[Clipmate] Failed to start server: " + err.Error())
		}
	}()

	if sdk.WaitForStart(s.Base.Env.BASE_URL, s.Base.Logger) {
		return nil
	}

	return errors.New("Couldn't start server")
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Base.Env.LISTEN_ADDR)
	if err != nil {
		return err
	}

	s.connector.Start()

	server := &http.Server{
		Handler: s.Router(),
	}
	s.httpServer = server
	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown() {
	go func() {
		s.connector.Dispose()
		if err := s.journal.Close(); err != nil {
			s.Base.Logger.Error("Failed to close journal", "error", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if s.httpServer == nil {
			s.Base.Logger.Error("shutdown failed", "error", errors.New("server not initialized"))
			return
		}
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Base.Logger.Error("shutdown failed", "error", err)
		}
	}()
}
