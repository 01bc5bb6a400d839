package conf

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	z "github.com/Oudwins/zog"

	"github.com/clipmate/clipmate/internals/version"
)

type Config struct {
	Version  string         `json:"-"`
	Producer ProducerConfig `json:"producer"`
	Server   ServerConfig   `json:"server"`
	Tasks    TasksConfig    `json:"tasks"`
}

// ProducerConfig points the daemon at the pipeline process that emits
// progress frames.
type ProducerConfig struct {
	URL             string `json:"url"`
	ReconnectBaseMS int    `json:"reconnect_base_ms"`
	ReconnectMaxMS  int    `json:"reconnect_max_ms"`
}

type ServerConfig struct {
	DataDir     string `json:"data_dir"`
	JournalKeep int    `json:"journal_keep"`
}

type TasksConfig struct {
	// Priority is the fixed display order for known task ids. Unknown ids
	// render after these, in arrival order.
	Priority []string `json:"priority"`
}

var producerSchema = z.Struct(z.Shape{
	"URL":             z.String().Default("ws://localhost:57890/progress"),
	"ReconnectBaseMS": z.Int().Default(2000).GTE(1),
	"ReconnectMaxMS":  z.Int().Default(15000).GTE(1),
})

var serverSchema = z.Struct(z.Shape{
	"DataDir":     z.String().Default("~/.clipmate").Transform(expandPathTransform),
	"JournalKeep": z.Int().Default(1000).GTE(0),
})

var tasksSchema = z.Struct(z.Shape{
	"Priority": z.Slice(z.String()).Default([]string{"auto_edit", "auto_upload"}),
})

var ConfigSchema = z.Struct(z.Shape{
	"producer": producerSchema,
	"server":   serverSchema,
	"tasks":    tasksSchema,
})

var config *Config

func GetConfig() *Config {
	if config == nil {
		defaults := &Config{}
		if err := ConfigSchema.Parse(map[string]any{}, defaults); err != nil {
			log.Fatal("[Clipmate] Failed to parse config", err)
		}
		defaults.Version = version.Version()

		dataDir, err := expandPath(defaults.Server.DataDir)
		if err != nil {
			log.Fatal("[Clipmate] Failed to expand config data dir", err)
		}

		configPath := filepath.Join(filepath.Clean(dataDir), "clipmate.json")
		data, err := os.ReadFile(configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				config = defaults
				return config
			}
			log.Fatal("[Clipmate] Failed to read config file", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			config = defaults
			return config
		}

		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Fatal("[Clipmate] Failed to parse config file", err)
		}
		parsed := &Config{}
		if err := ConfigSchema.Parse(payload, parsed); err != nil {
			log.Fatal("[Clipmate] Failed to parse config", err)
		}
		parsed.Version = defaults.Version
		config = parsed
	}

	return config
}

func expandPathTransform(ptr *string, c z.Ctx) error {
	expanded, err := expandPath(*ptr)
	*ptr = expanded
	return err
}

func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}
