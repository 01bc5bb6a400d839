package progress

import "strings"

// Stage is the canonical key/label pair a producer-supplied stage key
// resolves to.
type Stage struct {
	Key   string
	Label string
}

// StageTable maps the short stage keys one pipeline type emits to canonical
// stages. Unmapped keys pass through as themselves with a label derived from
// the key.
type StageTable struct {
	Stages map[string]Stage
	// Bootstrap lists stage keys that may arrive before any items
	// enumeration exists; they create or locate an item by the event's
	// message or label.
	Bootstrap []string
}

func (t StageTable) Resolve(key string) Stage {
	if stage, ok := t.Stages[key]; ok {
		return stage
	}
	return Stage{Key: key, Label: strings.ReplaceAll(key, "_", " ")}
}

func (t StageTable) IsBootstrap(key string) bool {
	for _, candidate := range t.Bootstrap {
		if candidate == key {
			return true
		}
	}
	return false
}

// StageTables holds one table per task type (task id doubles as the type for
// the built-in pipelines).
type StageTables map[string]StageTable

func (tables StageTables) ForTask(taskID string) StageTable {
	return tables[taskID]
}

// DefaultStageTables covers the built-in auto-edit and auto-upload
// pipelines. New pipeline types only need a new table here or in config,
// never reducer changes.
func DefaultStageTables() StageTables {
	return StageTables{
		"auto_edit": {
			Stages: map[string]Stage{
				"concat":   {Key: "concat", Label: "Concatenate recordings"},
				"subtitle": {Key: "subtitle", Label: "Render subtitles"},
				"encode":   {Key: "encode", Label: "Encode video"},
				"cleanup":  {Key: "cleanup", Label: "Clean up workspace"},
			},
		},
		"auto_upload": {
			Stages: map[string]Stage{
				"collect": {Key: "collect", Label: "Collect recordings"},
				"group":   {Key: "group", Label: "Group recordings"},
				"upload":  {Key: "upload", Label: "Upload video"},
				"submit":  {Key: "submit", Label: "Submit metadata"},
			},
			Bootstrap: []string{"collect", "group"},
		},
	}
}
