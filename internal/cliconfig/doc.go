// Package cliconfig handles configuration loading for the dust command
// line tools.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The SDK itself is configured programmatically (or through
// DUST_* variables); this package only serves the bundled commands.
//
// # Configuration File
//
// The default location is <user config dir>/dust/config.yaml, typically
// ~/.config/dust/config.yaml. When the file is absent the commands fall
// back to the DUST_* environment variables.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	api:
//	  api_key: "${DUST_API_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// API connection:
//
//	api:
//	  base_url: "https://dust.tt"   # optional
//	  workspace_id: "0ec9852c1f"
//	  api_key: "${DUST_API_KEY}"
//	  timeout: "90s"                # Go duration syntax
//
// Chat defaults:
//
//	chat:
//	  username: "leo"
//	  agent: "dust"                 # default agent sId
//	  timezone: "Europe/Paris"
//
// Local history:
//
//	history:
//	  disabled: false
//	  path: "~/.local/share/dust/history.db"  # optional
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package cliconfig
