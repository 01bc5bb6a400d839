package schemas

// Event kinds emitted by the progress producer. Unknown kinds are ignored
// by the engine for forward compatibility.
const (
	KindStart      = "start"
	KindItems      = "items"
	KindItemStage  = "item_stage"
	KindItemFinish = "item_finish"
	KindStage      = "stage"
	KindTotal      = "total"
	KindAdvance    = "advance"
	KindFinish     = "finish"
)

type TaskStatus string

const (
	TaskStatusIdle      TaskStatus = "idle"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is sticky: only a new start event
// resets a task out of it.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

type ItemStatus string

const (
	ItemStatusPending ItemStatus = "pending"
	ItemStatusActive  ItemStatus = "active"
	ItemStatusSuccess ItemStatus = "success"
	ItemStatusFailure ItemStatus = "failure"
)

func (s ItemStatus) Terminal() bool {
	return s == ItemStatusSuccess || s == ItemStatusFailure
}

type StepStatus string

const (
	StepStatusPending StepStatus = "pending"
	StepStatusActive  StepStatus = "active"
	StepStatusSuccess StepStatus = "success"
	StepStatusFailure StepStatus = "failure"
)

func (s StepStatus) Terminal() bool {
	return s == StepStatusSuccess || s == StepStatusFailure
}

// ProgressEvent is one frame from the producer stream. Only Kind and TaskID
// are required; every other field is optional and kind-specific. Numeric
// fields use pointers so reducers can tell "absent" from zero.
type ProgressEvent struct {
	Kind   string `json:"kind"`
	TaskID string `json:"task_id"`

	TaskName   string   `json:"task_name,omitempty"`
	Items      []string `json:"items,omitempty"`
	ItemIndex  *int     `json:"item_index,omitempty"`
	ItemKey    string   `json:"item_key,omitempty"`
	ItemLabel  string   `json:"item_label,omitempty"`
	StageKey   string   `json:"stage_key,omitempty"`
	StageLabel string   `json:"stage_label,omitempty"`
	Total      *float64 `json:"total,omitempty"`
	Completed  *float64 `json:"completed,omitempty"`
	Success    *bool    `json:"success,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// Succeeded applies the wire default: success is true when omitted.
func (e *ProgressEvent) Succeeded() bool {
	return e.Success == nil || *e.Success
}
