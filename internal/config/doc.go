// Package config handles configuration loading for agentboard.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults; a missing file is
// not an error, it just means the defaults apply.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from AGENTBOARD_CONFIG environment variable
//  2. <user config dir>/agentboard/config.yaml
//
// `agentboard init` writes a commented starter file to that location.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  path: "${AGENTBOARD_DATA}/agentboard.db"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// AGENTBOARD_DB_PATH additionally overrides database.path after the file is
// parsed, so deployments can relocate the database without editing YAML.
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "127.0.0.1:8845"  # MCP endpoint and dashboard
//
// Database:
//
//	database:
//	  path: "~/.local/share/agentboard/agentboard.db"
//
// Activity feed:
//
//	events:
//	  capacity: 1000   # events kept in memory
//
// Dashboard:
//
//	dashboard:
//	  enabled: true
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - server.http_addr and database.path are non-empty
//   - events.capacity is positive
//   - logging level and format values
//
// # Usage
//
// Load the effective configuration (file or defaults):
//
//	cfg, err := config.Resolve()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Load from a specific path:
//
//	cfg, err := config.Load("/etc/agentboard/config.yaml")
package config
