package progress

import "github.com/clipmate/clipmate/internals/schemas"

// TaskView decorates a task snapshot with its display percentage.
type TaskView struct {
	*Task
	Percent int `json:"percent"`
}

// View is the render-ready projection handed to the UI layer: tasks in
// display order plus aggregate flags.
type View struct {
	Tasks       []TaskView `json:"tasks"`
	AnyRunning  bool       `json:"any_running"`
	AnyFailed   bool       `json:"any_failed"`
	AllFinished bool       `json:"all_finished"`
	Revision    uint64     `json:"revision"`
}

// Project derives the current view: configured priority ids first, then any
// other task ids in the order they were first seen.
func (s *Store) Project() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := View{Revision: s.revision, AllFinished: len(s.tasks) > 0}

	appendTask := func(id string) {
		task, ok := s.tasks[id]
		if !ok {
			return
		}
		view.Tasks = append(view.Tasks, TaskView{Task: task, Percent: task.Percent()})
		if !task.Status.Terminal() {
			view.AllFinished = false
		}
		if task.Status == schemas.TaskStatusRunning {
			view.AnyRunning = true
		}
		if task.Status == schemas.TaskStatusFailed {
			view.AnyFailed = true
		}
	}

	for _, id := range s.priority {
		appendTask(id)
	}
	for _, id := range s.arrival {
		if !contains(s.priority, id) {
			appendTask(id)
		}
	}
	return view
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
