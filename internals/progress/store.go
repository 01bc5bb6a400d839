package progress

import (
	"log/slog"
	"sync"
	"time"

	"github.com/clipmate/clipmate/internals/schemas"
)

// Store holds the latest committed snapshot per task id. Commits are
// whole-snapshot replacements, so readers never observe a half-applied
// event and no reducer needs to lock anything.
type Store struct {
	logger *slog.Logger
	tables StageTables
	// priority is the fixed display order for known ids; unknown ids
	// follow in arrival order.
	priority []string

	mu       sync.RWMutex
	tasks    map[string]*Task
	arrival  []string
	revision uint64
	subs     map[uint64]chan struct{}
	nextSub  uint64
}

func NewStore(tables StageTables, priority []string, logger *slog.Logger) *Store {
	if tables == nil {
		tables = StageTables{}
	}
	return &Store{
		logger:   logger,
		tables:   tables,
		priority: append([]string(nil), priority...),
		tasks:    map[string]*Task{},
		subs:     map[uint64]chan struct{}{},
	}
}

// Apply folds one event into the addressed task. The task is created lazily
// on first reference; events with an unknown kind are dropped before that,
// so they never materialize a task.
func (s *Store) Apply(ev *schemas.ProgressEvent) {
	apply, ok := reducers[ev.Kind]
	if !ok {
		s.logger.Debug("Ignoring unknown event kind", "kind", ev.Kind, "task_id", ev.TaskID)
		return
	}
	if ev.ItemIndex != nil && *ev.ItemIndex > maxItemIndex {
		s.logger.Warn("Ignoring event with out-of-range item index",
			"kind", ev.Kind, "task_id", ev.TaskID, "item_index", *ev.ItemIndex)
		return
	}

	s.mu.Lock()
	current, known := s.tasks[ev.TaskID]
	if !known {
		current = newTask(ev.TaskID)
		s.arrival = append(s.arrival, ev.TaskID)
	}
	draft := current.clone()
	apply(draft, ev, s.tables.ForTask(ev.TaskID))
	draft.LastUpdated = time.Now()
	s.tasks[ev.TaskID] = draft
	s.revision++
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()
}

// Get returns the committed snapshot for id. The returned task must be
// treated as read-only; the store never mutates it again.
func (s *Store) Get(id string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	return task, ok
}

func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Subscribe returns a channel that receives a tick after every commit, and
// a cancel func. Ticks are dropped, not queued, when the subscriber lags.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
	return ch, cancel
}
