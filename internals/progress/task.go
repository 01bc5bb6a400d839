package progress

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/clipmate/clipmate/internals/schemas"
)

// NoActive marks a task with no active item.
const NoActive = -1

type Step struct {
	Key     string             `json:"key"`
	Label   string             `json:"label"`
	Status  schemas.StepStatus `json:"status"`
	Message string             `json:"message,omitempty"`
}

type Item struct {
	Title         string             `json:"title"`
	Status        schemas.ItemStatus `json:"status"`
	Steps         []Step             `json:"steps,omitempty"`
	ActiveStepKey string             `json:"active_step_key,omitempty"`
	// Expanded is presentation state carried for the UI, never a
	// correctness input.
	Expanded bool `json:"expanded"`
}

// Task is one immutable snapshot of a pipeline run. Reducers clone the
// current snapshot, mutate the clone, and commit it back into the store, so
// a published *Task is never written again.
type Task struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Total          int                `json:"total"`
	Completed      int                `json:"completed"`
	Status         schemas.TaskStatus `json:"status"`
	Items          []Item             `json:"items,omitempty"`
	ActiveIndex    int                `json:"active_index"`
	ErrorMessage   string             `json:"error_message,omitempty"`
	SuccessMessage string             `json:"success_message,omitempty"`
	// LastUpdated orders tasks in debug views only. Never used for
	// correctness.
	LastUpdated time.Time `json:"last_updated"`

	totalKnown bool
}

func newTask(id string) *Task {
	return &Task{
		ID:          id,
		Title:       defaultTaskTitle(id),
		Status:      schemas.TaskStatusIdle,
		ActiveIndex: NoActive,
	}
}

func defaultTaskTitle(id string) string {
	return strings.ReplaceAll(id, "_", " ")
}

func defaultItemTitle(index int) string {
	return "Item " + strconv.Itoa(index+1)
}

func (t *Task) clone() *Task {
	copied := *t
	copied.Items = make([]Item, len(t.Items))
	for i, item := range t.Items {
		copied.Items[i] = item
		copied.Items[i].Steps = append([]Step(nil), item.Steps...)
	}
	return &copied
}

// Percent is the display percentage: round(clamp(completed/total, 0, 1) ×
// 100), 0 when total is unknown or zero.
func (t *Task) Percent() int {
	if t.Total <= 0 {
		return 0
	}
	ratio := float64(t.Completed) / float64(t.Total)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return int(math.Round(ratio * 100))
}

func (t *Task) clampCompleted() {
	if t.Completed < 0 {
		t.Completed = 0
	}
	if t.totalKnown && t.Completed > t.Total {
		t.Completed = t.Total
	}
}

func (t *Task) activeItem() *Item {
	if t.ActiveIndex < 0 || t.ActiveIndex >= len(t.Items) {
		return nil
	}
	return &t.Items[t.ActiveIndex]
}
