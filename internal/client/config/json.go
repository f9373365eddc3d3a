package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/docqa/internal/flagx"
	"github.com/dmitrijs2005/docqa/internal/timex"
	"github.com/tidwall/jsonc"
)

// JsonConfig is a DTO used exclusively for file decoding. Pointer fields
// distinguish "absent" from zero so a partial file only overrides what it
// names.
type JsonConfig struct {
	APIBase            *string         `json:"api_base"`
	TopK               *int            `json:"top_k"`
	DefaultContentType *string         `json:"default_content_type"`
	Output             *string         `json:"output"`
	LogLevel           *string         `json:"log_level"`
	LogDir             *string         `json:"log_dir"`
	HTTPTimeout        *timex.Duration `json:"http_timeout"`
}

// parseJSON overlays cfg with values from the file given via -c/-config.
// The file may use JSONC syntax: // and /* */ comments, trailing commas.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &jc); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	if jc.APIBase != nil && *jc.APIBase != "" {
		cfg.APIBase = *jc.APIBase
		cfg.APIOverridden = true
	}
	if jc.TopK != nil {
		cfg.TopK = *jc.TopK
	}
	if jc.DefaultContentType != nil {
		cfg.DefaultContentType = *jc.DefaultContentType
	}
	if jc.Output != nil {
		cfg.Output = *jc.Output
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.LogDir != nil {
		cfg.LogDir = *jc.LogDir
	}
	if jc.HTTPTimeout != nil {
		cfg.HTTPTimeout = jc.HTTPTimeout.Duration
	}
	return nil
}
