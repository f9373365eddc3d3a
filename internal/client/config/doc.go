// Package config loads runtime configuration for the docqa client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSONC file selected via -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # File format
//
// JSON with comments and trailing commas allowed. Durations accept either a
// Go duration string or integer nanoseconds:
//
//	{
//	  // point at a staging API instead of the default origin
//	  "api_base": "https://staging.example.com",
//	  "top_k": 8,
//	  "output": "html",
//	  "http_timeout": "30s",
//	}
//
// When api_base or -api is given, Config.APIOverridden is set so the client
// can tell the user which backend it talks to.
package config
