// Package config provides configuration loading, merging, and path
// management for opencode-studio.
//
// # Configuration Loading
//
// Load implements a three-tier loading strategy, in priority order:
//
//  1. Global config (~/.config/opencode-studio/opencode-studio.jsonc)
//  2. Project config (<project>/.opencode-studio/opencode-studio.jsonc)
//  3. Environment variables (highest precedence)
//
// A .env file in the project directory is loaded via godotenv before
// step 3, so its values participate in the environment-variable step.
//
// # Supported Format
//
// Config files are JSONC (JSON with comments), stripped via
// github.com/tidwall/jsonc before unmarshaling.
//
// # Path Management
//
// Paths follows the XDG Base Directory Specification:
//   - Data: ~/.local/share/opencode-studio (XDG_DATA_HOME)
//   - Config: ~/.config/opencode-studio (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/opencode-studio (XDG_CACHE_HOME)
//   - State: ~/.local/state/opencode-studio (XDG_STATE_HOME)
package config
