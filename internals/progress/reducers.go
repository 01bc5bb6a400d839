package progress

import (
	"math"

	"github.com/clipmate/clipmate/internals/schemas"
)

// A reducer folds one event into a cloned task snapshot. Reducers must be
// total over sparse input: every field beyond kind/task_id is optional and
// a malformed value falls back to a safe default instead of failing.
type reducer func(t *Task, ev *schemas.ProgressEvent, table StageTable)

var reducers = map[string]reducer{
	schemas.KindStart:      applyStart,
	schemas.KindItems:      applyItems,
	schemas.KindItemStage:  applyItemStage,
	schemas.KindItemFinish: applyItemFinish,
	schemas.KindStage:      applyStage,
	schemas.KindTotal:      applyTotal,
	schemas.KindAdvance:    applyAdvance,
	schemas.KindFinish:     applyFinish,
}

// applyStart resets the task from scratch. This is the only transition out
// of a terminal status.
func applyStart(t *Task, ev *schemas.ProgressEvent, _ StageTable) {
	if ev.TaskName != "" {
		t.Title = ev.TaskName
	}
	t.Status = schemas.TaskStatusRunning
	t.Items = make([]Item, len(ev.Items))
	for i, title := range ev.Items {
		if title == "" {
			title = defaultItemTitle(i)
		}
		t.Items[i] = Item{Title: title, Status: schemas.ItemStatusPending}
	}
	t.ActiveIndex = NoActive
	if len(t.Items) > 0 {
		t.Items[0].Status = schemas.ItemStatusActive
		t.ActiveIndex = 0
	}
	if total, ok := eventCount(ev.Total); ok {
		t.Total = total
	} else {
		t.Total = len(t.Items)
	}
	t.totalKnown = true
	if completed, ok := eventCount(ev.Completed); ok {
		t.Completed = completed
	} else {
		t.Completed = 0
	}
	t.clampCompleted()
	t.ErrorMessage = ""
	t.SuccessMessage = ""
}

// applyItems appends items beyond the known count and upgrades placeholder
// titles. Re-supplying the same list is a no-op; a shrinking list is
// ignored (items are append-only within a task lifetime).
func applyItems(t *Task, ev *schemas.ProgressEvent, _ StageTable) {
	for i, title := range ev.Items {
		if i < len(t.Items) {
			if title != "" && t.Items[i].Title == defaultItemTitle(i) {
				t.Items[i].Title = title
			}
			continue
		}
		if title == "" {
			title = defaultItemTitle(i)
		}
		t.Items = append(t.Items, Item{Title: title, Status: schemas.ItemStatusPending})
	}
	if !t.totalKnown {
		t.Total = len(t.Items)
		t.totalKnown = true
	}
}

// applyItemStage activates an item (explicitly addressed, current, or
// appended) and activates one of its steps.
func applyItemStage(t *Task, ev *schemas.ProgressEvent, table StageTable) {
	idx := len(t.Items)
	if ev.ItemIndex != nil && *ev.ItemIndex >= 0 {
		idx = *ev.ItemIndex
	} else if t.ActiveIndex != NoActive {
		idx = t.ActiveIndex
	}
	growItems(t, idx)
	setActiveItem(t, idx)

	if ev.ItemKey != "" {
		stage := table.Resolve(ev.ItemKey)
		if ev.ItemLabel != "" {
			stage.Label = ev.ItemLabel
		}
		activateStep(&t.Items[idx], stage, ev.Message)
	}
	t.Status = schemas.TaskStatusRunning
}

// applyItemFinish settles one item. On success the active index advances to
// the next item; on failure it stays on the failed item.
func applyItemFinish(t *Task, ev *schemas.ProgressEvent, _ StageTable) {
	idx := NoActive
	if ev.ItemIndex != nil && *ev.ItemIndex >= 0 {
		idx = *ev.ItemIndex
	} else if t.ActiveIndex != NoActive {
		idx = t.ActiveIndex
	}
	if idx < 0 || idx >= len(t.Items) {
		return
	}
	item := &t.Items[idx]

	if ev.Succeeded() {
		item.Status = schemas.ItemStatusSuccess
		settleActiveStep(item, schemas.StepStatusSuccess, "")
		if idx == t.ActiveIndex {
			if idx+1 < len(t.Items) {
				t.ActiveIndex = idx + 1
			} else {
				t.ActiveIndex = NoActive
			}
		}
		return
	}

	item.Status = schemas.ItemStatusFailure
	settleActiveStep(item, schemas.StepStatusFailure, ev.Message)
	// An explicitly addressed failure moves the active index, so the item
	// that was in flight demotes to pending; only one item may be active.
	if prev := t.activeItem(); prev != nil && t.ActiveIndex != idx && prev.Status == schemas.ItemStatusActive {
		prev.Status = schemas.ItemStatusPending
	}
	t.ActiveIndex = idx
}

// applyStage updates a step on the implicitly-addressed current item.
// Bootstrap keys may create or locate the item first; otherwise a stage
// event with no active item is a no-op, and terminal state is never
// revived.
func applyStage(t *Task, ev *schemas.ProgressEvent, table StageTable) {
	if ev.StageKey == "" || t.Status.Terminal() {
		return
	}
	stage := table.Resolve(ev.StageKey)
	if ev.StageLabel != "" {
		stage.Label = ev.StageLabel
	}

	if table.IsBootstrap(ev.StageKey) {
		title := ev.Message
		if title == "" {
			title = stage.Label
		}
		idx := findItemByTitle(t, title)
		if idx == NoActive {
			t.Items = append(t.Items, Item{Title: title, Status: schemas.ItemStatusPending})
			idx = len(t.Items) - 1
		}
		setActiveItem(t, idx)
		activateStep(&t.Items[idx], stage, ev.Message)
		t.Status = schemas.TaskStatusRunning
		return
	}

	item := t.activeItem()
	if item == nil || item.Status.Terminal() {
		return
	}
	item.Status = schemas.ItemStatusActive
	activateStep(item, stage, ev.Message)
	t.Status = schemas.TaskStatusRunning
}

// applyTotal overwrites the unit count when the event carries a usable one.
func applyTotal(t *Task, ev *schemas.ProgressEvent, _ StageTable) {
	total, ok := eventCount(ev.Total)
	if !ok {
		return
	}
	t.Total = total
	t.totalKnown = true
	t.clampCompleted()
}

// applyAdvance bumps the completed count (to an explicit value or by one)
// and settles the active item like a successful item_finish.
func applyAdvance(t *Task, ev *schemas.ProgressEvent, _ StageTable) {
	if completed, ok := eventCount(ev.Completed); ok {
		t.Completed = completed
	} else {
		t.Completed++
	}
	t.clampCompleted()

	idx := t.ActiveIndex
	if idx < 0 || idx >= len(t.Items) {
		return
	}
	item := &t.Items[idx]
	// Only an item that is actually in flight settles here. A pending item
	// at the active index means an item_finish already handled the handoff.
	if item.Status != schemas.ItemStatusActive {
		return
	}
	item.Status = schemas.ItemStatusSuccess
	settleActiveStep(item, schemas.StepStatusSuccess, "")
	if idx+1 < len(t.Items) {
		t.ActiveIndex = idx + 1
	} else {
		t.ActiveIndex = NoActive
	}
}

// applyFinish is the terminal transition. Success force-promotes every
// unfinished item; failure settles only the active item and leaves pending
// items pending.
func applyFinish(t *Task, ev *schemas.ProgressEvent, _ StageTable) {
	if ev.Succeeded() {
		t.Status = schemas.TaskStatusSucceeded
		if completed, ok := eventCount(ev.Completed); ok {
			t.Completed = completed
		} else {
			t.Completed = t.Total
		}
		t.clampCompleted()
		for i := range t.Items {
			item := &t.Items[i]
			if !item.Status.Terminal() {
				item.Status = schemas.ItemStatusSuccess
			}
			settleActiveStep(item, schemas.StepStatusSuccess, "")
		}
		t.ActiveIndex = NoActive
		t.SuccessMessage = ev.Message
		return
	}

	t.Status = schemas.TaskStatusFailed
	t.ErrorMessage = ev.Message
	item := t.activeItem()
	if item != nil && !item.Status.Terminal() {
		item.Status = schemas.ItemStatusFailure
		settleActiveStep(item, schemas.StepStatusFailure, ev.Message)
	}
}

// maxItemIndex bounds how far an explicit item_index may grow the item
// list. Real pipelines run tens of items; anything past this is a producer
// bug and must not balloon memory.
const maxItemIndex = 4096

// growItems extends the item list with placeholders so idx is addressable.
func growItems(t *Task, idx int) {
	for len(t.Items) <= idx {
		t.Items = append(t.Items, Item{
			Title:  defaultItemTitle(len(t.Items)),
			Status: schemas.ItemStatusPending,
		})
	}
}

// setActiveItem promotes idx to active and demotes the previous active item
// to pending unless it already settled.
func setActiveItem(t *Task, idx int) {
	if prev := t.activeItem(); prev != nil && t.ActiveIndex != idx {
		if prev.Status == schemas.ItemStatusActive {
			prev.Status = schemas.ItemStatusPending
		}
	}
	t.Items[idx].Status = schemas.ItemStatusActive
	t.ActiveIndex = idx
}

// activateStep makes the addressed step the item's single active step,
// settling the previously active one as success. Labels and messages are
// re-supplied on every event, so replays converge to the same state.
func activateStep(item *Item, stage Stage, message string) {
	if item.ActiveStepKey != "" && item.ActiveStepKey != stage.Key {
		if prev := findStep(item, item.ActiveStepKey); prev != nil && prev.Status == schemas.StepStatusActive {
			prev.Status = schemas.StepStatusSuccess
		}
	}
	step := findStep(item, stage.Key)
	if step == nil {
		item.Steps = append(item.Steps, Step{Key: stage.Key})
		step = &item.Steps[len(item.Steps)-1]
	}
	step.Label = stage.Label
	step.Status = schemas.StepStatusActive
	step.Message = message
	item.ActiveStepKey = stage.Key
}

// settleActiveStep moves the item's active step (if any) into a terminal
// status and clears the active key.
func settleActiveStep(item *Item, status schemas.StepStatus, message string) {
	if item.ActiveStepKey == "" {
		return
	}
	if step := findStep(item, item.ActiveStepKey); step != nil && step.Status == schemas.StepStatusActive {
		step.Status = status
		if message != "" {
			step.Message = message
		}
	}
	item.ActiveStepKey = ""
}

func findStep(item *Item, key string) *Step {
	for i := range item.Steps {
		if item.Steps[i].Key == key {
			return &item.Steps[i]
		}
	}
	return nil
}

func findItemByTitle(t *Task, title string) int {
	for i := range t.Items {
		if t.Items[i].Title == title {
			return i
		}
	}
	return NoActive
}

// eventCount validates a wire number as a usable unit count: present,
// finite, and non-negative.
func eventCount(value *float64) (int, bool) {
	if value == nil {
		return 0, false
	}
	v := *value
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return int(v), true
}
