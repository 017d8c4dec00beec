// Package config loads and merges opencode-studio configuration from the
// global config directory, the project's .opencode-studio directory, and
// environment variables, in that priority order.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// StudioConfig holds task-execution configuration for one project.
type StudioConfig struct {
	// RequirePlanApproval gates Planning -> InProgress on an explicit
	// human transition through PlanningReview when true (spec §4.1).
	RequirePlanApproval bool `json:"requirePlanApproval"`

	// RequireHumanReview gates AiReview's Approved outcome on an explicit
	// human transition through Review when true (spec §4.2.3).
	RequireHumanReview bool `json:"requireHumanReview"`

	// MaxReviewIterations bounds the Review/Fix loop (spec §4.2.3, §5).
	MaxReviewIterations int `json:"maxReviewIterations"`

	// UseMCPFindings enables the findings MCP tool server for ReviewPhase.
	UseMCPFindings bool `json:"useMcpFindings"`

	// OpenCode backend connection.
	BackendURL   string `json:"backendUrl"`
	BackendModel string `json:"backendModel"` // "provider/model", e.g. "anthropic/claude-sonnet-4"
	APIKey       string `json:"apiKey,omitempty"`

	// GitHubToken authorizes internal/roadmap's go-github client.
	GitHubToken string `json:"githubToken,omitempty"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() StudioConfig {
	return StudioConfig{
		RequirePlanApproval: true,
		RequireHumanReview:  true,
		MaxReviewIterations: 3,
		UseMCPFindings:      true,
		BackendURL:          "http://localhost:4096",
		BackendModel:        "anthropic/claude-sonnet-4",
	}
}

// Load loads configuration from, in priority order: the global config
// file, the project config file, and environment variables. A .env file
// in directory is loaded first (if present) so its values are visible to
// the environment-variable step.
func Load(directory string) (StudioConfig, error) {
	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	}

	cfg := DefaultConfig()

	if err := loadConfigFile(GlobalConfigPath(), &cfg); err != nil {
		return cfg, err
	}
	if directory != "" {
		if err := loadConfigFile(ProjectConfigPath(directory), &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// loadConfigFile merges the JSONC config file at path into cfg. A
// missing file is not an error.
func loadConfigFile(path string, cfg *StudioConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	data = jsonc.ToJSON(data)

	fileCfg := *cfg
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}

	mergeConfig(cfg, &fileCfg)
	return nil
}

func mergeConfig(target, source *StudioConfig) {
	// bools are copied as-is: loadConfigFile seeds source from target
	// before unmarshaling, so a bool key absent from the file keeps
	// target's value and an explicit false in the file takes effect.
	if source.MaxReviewIterations != 0 {
		target.MaxReviewIterations = source.MaxReviewIterations
	}
	if source.BackendURL != "" {
		target.BackendURL = source.BackendURL
	}
	if source.BackendModel != "" {
		target.BackendModel = source.BackendModel
	}
	if source.APIKey != "" {
		target.APIKey = source.APIKey
	}
	if source.GitHubToken != "" {
		target.GitHubToken = source.GitHubToken
	}
	target.RequirePlanApproval = source.RequirePlanApproval
	target.RequireHumanReview = source.RequireHumanReview
	target.UseMCPFindings = source.UseMCPFindings
}

func applyEnvOverrides(cfg *StudioConfig) {
	if v := os.Getenv("OPENCODE_STUDIO_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("OPENCODE_STUDIO_MODEL"); v != "" {
		cfg.BackendModel = v
	}
	if v := os.Getenv("OPENCODE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHubToken = v
	}
	if v := os.Getenv("OPENCODE_STUDIO_MAX_REVIEW_ITERATIONS"); v != "" {
		var n int
		if err := json.Unmarshal([]byte(v), &n); err == nil && n > 0 {
			cfg.MaxReviewIterations = n
		}
	}
}

// Save writes cfg as indented JSON to path, creating parent directories
// as needed.
func Save(cfg StudioConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
