package config

import (
	"os"
	"strings"
	"time"
)

const (
	DefaultAPIBase     = "http://127.0.0.1:8080"
	DefaultTopK        = 5
	DefaultContentType = "application/pdf"
)

// Output formats understood by the view layer.
const (
	OutputText = "text"
	OutputHTML = "html"
)

// Config holds runtime settings for the docqa client.
//
// Fields:
//   - APIBase: backend base address; /search, /answer and /upload hang off it.
//   - APIOverridden: true when APIBase came from the config file or a flag
//     rather than the built-in default.
//   - TopK: default number of matches requested when a command gives none.
//   - DefaultContentType: MIME type used for uploads whose type is unknown.
//   - Output: "text" (terminal) or "html" (HTML fragments on stdout).
//   - LogLevel, LogDir: diagnostics sink; records go to LogDir/client.log.
//   - HTTPTimeout: per-request client timeout; zero disables it.
type Config struct {
	APIBase            string
	APIOverridden      bool
	TopK               int
	DefaultContentType string
	Output             string
	LogLevel           string
	LogDir             string
	HTTPTimeout        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBase = DefaultAPIBase
	c.APIOverridden = false
	c.TopK = DefaultTopK
	c.DefaultContentType = DefaultContentType
	c.Output = OutputText
	c.LogLevel = "info"
	c.LogDir = "logs"
	c.HTTPTimeout = 0
}

// LoadConfig constructs a Config from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load applies defaults, then overlays values from the JSONC file named by
// -c/-config (if any) and finally the command-line flags in args. Later
// sources take precedence over earlier ones.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.APIBase = TrimBase(c.APIBase)
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if strings.TrimSpace(c.DefaultContentType) == "" {
		c.DefaultContentType = DefaultContentType
	}
	if c.Output != OutputHTML {
		c.Output = OutputText
	}
}

// TrimBase strips surrounding whitespace and trailing slashes from a base
// address so that paths can be appended verbatim.
func TrimBase(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}
