package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/clipmate/clipmate/internals/desktop"
	"github.com/clipmate/clipmate/internals/env"
	"github.com/clipmate/clipmate/internals/journal"
	"github.com/clipmate/clipmate/internals/progress"
	"github.com/clipmate/clipmate/internals/schemas"
	"github.com/clipmate/clipmate/internals/stream"
)

func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	original := os.Stdout
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe error: %v", err)
	}
	os.Stdout = writer

	runErr := fn()

	writer.Close()
	os.Stdout = original

	out, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	return string(out), runErr
}

func setupCLIEnv(t *testing.T, baseURL string) {
	t.Helper()
	envs := env.Get()
	originalBase := envs.BASE_URL
	envs.BASE_URL = baseURL
	t.Cleanup(func() {
		envs.BASE_URL = originalBase
	})
}

func fakeDaemon(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1.2.3"))
	})
	if handler != nil {
		mux.HandleFunc("/", handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunUsage(t *testing.T) {
	if err := run(nil); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for no args, got %v", err)
	}
	if err := run([]string{"bogus"}); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for unknown command, got %v", err)
	}
	if err := run([]string{"task"}); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for task without id, got %v", err)
	}
}

func TestTasksCommand(t *testing.T) {
	server := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" {
			http.NotFound(w, r)
			return
		}
		view := progress.View{
			Tasks: []progress.TaskView{{
				Task: &progress.Task{
					ID:        "auto_edit",
					Status:    schemas.TaskStatusRunning,
					Total:     4,
					Completed: 1,
				},
				Percent: 25,
			}},
			AnyRunning: true,
		}
		json.NewEncoder(w).Encode(view)
	})
	setupCLIEnv(t, server.URL)

	out, err := captureOutput(t, func() error {
		return run([]string{"tasks"})
	})
	if err != nil {
		t.Fatalf("tasks error: %v", err)
	}
	if !strings.Contains(out, "auto_edit") || !strings.Contains(out, "25%") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTaskCommand(t *testing.T) {
	server := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/auto_edit" {
			http.NotFound(w, r)
			return
		}
		task := progress.TaskView{
			Task: &progress.Task{
				ID:           "auto_edit",
				Title:        "auto edit",
				Status:       schemas.TaskStatusFailed,
				ErrorMessage: "disk full",
				Items: []progress.Item{{
					Title:  "clip-01",
					Status: schemas.ItemStatusFailure,
				}},
			},
			Percent: 50,
		}
		json.NewEncoder(w).Encode(task)
	})
	setupCLIEnv(t, server.URL)

	out, err := captureOutput(t, func() error {
		return run([]string{"task", "auto_edit"})
	})
	if err != nil {
		t.Fatalf("task error: %v", err)
	}
	if !strings.Contains(out, "disk full") || !strings.Contains(out, "clip-01") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestReconnectCommand(t *testing.T) {
	server := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/connection/reconnect" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(stream.Status{State: stream.StateConnecting, Attempts: 2})
	})
	setupCLIEnv(t, server.URL)

	out, err := captureOutput(t, func() error {
		return run([]string{"reconnect"})
	})
	if err != nil {
		t.Fatalf("reconnect error: %v", err)
	}
	if !strings.Contains(out, "connecting") || !strings.Contains(out, "attempts: 2") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestJournalCommand(t *testing.T) {
	var gotLimit string
	server := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/journal" {
			http.NotFound(w, r)
			return
		}
		gotLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode([]journal.Frame{{
			ID:      "f1",
			TaskID:  "auto_upload",
			Kind:    "start",
			Payload: json.RawMessage(`{"kind":"start"}`),
		}})
	})
	setupCLIEnv(t, server.URL)

	out, err := captureOutput(t, func() error {
		return run([]string{"journal", "--limit", "5"})
	})
	if err != nil {
		t.Fatalf("journal error: %v", err)
	}
	if gotLimit != "5" {
		t.Fatalf("expected limit forwarded, got %q", gotLimit)
	}
	if !strings.Contains(out, "auto_upload") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestJournalCommandRejectsBadLimit(t *testing.T) {
	if err := run([]string{"journal", "--limit", "abc"}); err == nil {
		t.Fatalf("expected error for non-numeric limit")
	}
	if err := run([]string{"journal", "--limit", "-1"}); err == nil {
		t.Fatalf("expected error for negative limit")
	}
	if err := run([]string{"journal", "--limit"}); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for missing value, got %v", err)
	}
}

func TestOpenCommand(t *testing.T) {
	setupCLIEnv(t, "http://localhost:57891")

	originalExec := desktop.ExecCommand
	originalGOOS := desktop.RuntimeGOOS
	var gotArgs []string
	desktop.ExecCommand = func(name string, args ...string) *exec.Cmd {
		gotArgs = append([]string{name}, args...)
		return exec.Command("true")
	}
	desktop.RuntimeGOOS = "linux"
	t.Cleanup(func() {
		desktop.ExecCommand = originalExec
		desktop.RuntimeGOOS = originalGOOS
	})

	out, err := captureOutput(t, func() error {
		return run([]string{"open"})
	})
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "xdg-open" || gotArgs[1] != "http://localhost:57891/tasks" {
		t.Fatalf("unexpected command: %v", gotArgs)
	}
	if !strings.Contains(out, "Opened") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	server := fakeDaemon(t, nil)
	setupCLIEnv(t, server.URL)

	out, err := captureOutput(t, func() error {
		return run([]string{"version"})
	})
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.Contains(out, "clipmate ") {
		t.Fatalf("expected local version line, got %q", out)
	}
	if !strings.Contains(out, "clipmated 1.2.3") {
		t.Fatalf("expected daemon version line, got %q", out)
	}
}
