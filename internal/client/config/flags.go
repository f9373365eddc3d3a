package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/docqa/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-api string   backend base address (overrides the default origin)
//	-k int        default top-k
//	-o string     output format: text | html
//	-l string     log level: debug | info | warn | error
//	-t int        HTTP timeout in seconds (0 = none)
//
// Only these flags are looked at; everything else in args is ignored.
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, []string{"-api", "-k", "-o", "-l", "-t"})

	fs := flag.NewFlagSet("docqa", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	api := fs.String("api", "", "backend base address")
	fs.IntVar(&cfg.TopK, "k", cfg.TopK, "default number of matches")
	fs.StringVar(&cfg.Output, "o", cfg.Output, "output format (text|html)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	timeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "HTTP timeout in seconds (0 = none)")

	if err := fs.Parse(filtered); err != nil {
		return err
	}

	if *api != "" {
		cfg.APIBase = *api
		cfg.APIOverridden = true
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.HTTPTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return nil
}
