package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultReportTemplate renders a session for `oralvis export`. The output is
// markdown, so values use triple mustaches to skip HTML escaping.
const DefaultReportTemplate = `# Session {{session_id}}

- Patient: {{{name}}}
- Age: {{age}}
- Recorded: {{{recorded}}} ({{{recorded_ago}}})
- Images: {{image_count}}{{#missing_images}} ({{on_disk}} on disk){{/missing_images}}

{{#images}}
## {{{name}}}

- Path: {{{path}}}
- Size: {{size}}
{{#date_taken}}- Taken: {{{date_taken}}}
{{/date_taken}}{{#camera}}- Camera: {{{camera}}}
{{/camera}}
{{/images}}
{{^images}}
No images on disk.
{{/images}}
`

type Config struct {
	DBPath         string
	PicturesRoot   string
	LogLevel       string
	ReportTemplate string
}

// StatePath is where the active capture is kept between commands. It sits next
// to the database and is named after it, so each database has its own capture.
func (c *Config) StatePath() string {
	base := strings.TrimSuffix(filepath.Base(c.DBPath), filepath.Ext(c.DBPath))
	return filepath.Join(filepath.Dir(c.DBPath), base+".active.json")
}

type tomlConfig struct {
	DBPath         string `toml:"db_path"`
	PicturesRoot   string `toml:"pictures_root"`
	LogLevel       string `toml:"log_level"`
	ReportTemplate string `toml:"report_template"`
}

// Dir returns ~/.config/oralvis, or a relative fallback without a home directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".oralvis"
	}
	return filepath.Join(home, ".config", "oralvis")
}

// Load reads config from ~/.config/oralvis/
func Load() (*Config, error) {
	return LoadFrom(Dir())
}

// LoadFrom reads config.toml and .env from configDir. Precedence, lowest first:
// defaults, config.toml, .env in configDir, process environment.
func LoadFrom(configDir string) (*Config, error) {
	cfg := &Config{
		DBPath:         filepath.Join(configDir, "sessions.db"),
		PicturesRoot:   filepath.Join(configDir, "Pictures"),
		LogLevel:       "info",
		ReportTemplate: DefaultReportTemplate,
	}

	// Load TOML config if it exists
	tomlPath := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(tomlPath, &tc); err != nil {
			return cfg, err
		}
		if tc.DBPath != "" {
			cfg.DBPath = expandHome(tc.DBPath)
		}
		if tc.PicturesRoot != "" {
			cfg.PicturesRoot = expandHome(tc.PicturesRoot)
		}
		if tc.LogLevel != "" {
			cfg.LogLevel = tc.LogLevel
		}
		if tc.ReportTemplate != "" {
			if data, err := os.ReadFile(expandHome(tc.ReportTemplate)); err == nil {
				cfg.ReportTemplate = string(data)
			}
		}
	}

	// .env values never override variables already set in the environment
	envPath := filepath.Join(configDir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		env, err := godotenv.Read(envPath)
		if err != nil {
			return cfg, err
		}
		applyEnv(cfg, func(key string) string { return env[key] })
	}
	applyEnv(cfg, os.Getenv)

	return cfg, nil
}

func applyEnv(cfg *Config, get func(string) string) {
	if v := strings.TrimSpace(get("ORALVIS_DB")); v != "" {
		cfg.DBPath = expandHome(v)
	}
	if v := strings.TrimSpace(get("ORALVIS_PICTURES")); v != "" {
		cfg.PicturesRoot = expandHome(v)
	}
	if v := strings.TrimSpace(get("ORALVIS_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
