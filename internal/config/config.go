// Package config loads process configuration from an optional YAML file,
// optional dotenv files and WM_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string    `yaml:"env" env:"WM_ENV" env-default:"prod" env-description:"dev enables coloured console logging"`
	Log       Log       `yaml:"log"`
	Templates Templates `yaml:"templates"`
	Fonts     Fonts     `yaml:"fonts"`
	Export    Export    `yaml:"export"`
	Preview   Preview   `yaml:"preview"`
}

type Log struct {
	Level      string `yaml:"level" env:"WM_LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	File       string `yaml:"file" env:"WM_LOG_FILE" env-description:"rotated JSON log file, empty for stderr only"`
	MaxSize    int    `yaml:"max_size" env:"WM_LOG_MAX_SIZE" env-default:"10" env-description:"megabytes before rotation"`
	MaxBackups int    `yaml:"max_backups" env:"WM_LOG_MAX_BACKUPS" env-default:"3"`
	MaxAge     int    `yaml:"max_age" env:"WM_LOG_MAX_AGE" env-default:"28" env-description:"days to keep rotated files"`
}

type Templates struct {
	Dir string `yaml:"dir" env:"WM_TEMPLATES_DIR" env-description:"template store directory, defaults to the user config dir"`
}

type Fonts struct {
	Dirs      []string `yaml:"dirs" env:"WM_FONT_DIRS" env-separator:"," env-description:"extra font directories"`
	CacheSize int      `yaml:"cache_size" env:"WM_FONT_CACHE_SIZE" env-default:"64"`
}

type Export struct {
	Format      string `yaml:"format" env:"WM_EXPORT_FORMAT" env-default:"jpeg"`
	Quality     int    `yaml:"quality" env:"WM_EXPORT_QUALITY" env-default:"90"`
	Background  string `yaml:"background" env:"WM_EXPORT_BACKGROUND" env-default:"#ffffff" env-description:"colour JPEG output is flattened onto"`
	Naming      string `yaml:"naming" env:"WM_EXPORT_NAMING" env-default:"original" env-description:"original, prefix or suffix"`
	MetricsFile string `yaml:"metrics_file" env:"WM_METRICS_FILE" env-description:"write export metrics in Prometheus text format"`
}

type Preview struct {
	Width      int    `yaml:"width" env:"WM_PREVIEW_WIDTH" env-default:"450"`
	Height     int    `yaml:"height" env:"WM_PREVIEW_HEIGHT" env-default:"350"`
	Background string `yaml:"background" env:"WM_PREVIEW_BACKGROUND" env-default:"#404040"`
}

// Load reads path (when not empty) and then the environment. Dotenv files
// are loaded first and never override variables that are already set.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	var cfg Config
	var err error
	if strings.TrimSpace(path) != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if cfg.Templates.Dir == "" {
		cfg.Templates.Dir = defaultTemplatesDir()
	}
	if cfg.Export.Quality < 0 || cfg.Export.Quality > 100 {
		return nil, fmt.Errorf("export quality %d not in [0,100]", cfg.Export.Quality)
	}
	return &cfg, nil
}

// Describe lists the supported environment variables.
func Describe() (string, error) {
	var cfg Config
	return cleanenv.GetDescription(&cfg, nil)
}

// IsDev reports whether development logging is enabled.
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

func defaultTemplatesDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "wmstudio")
	}
	return ".wmstudio"
}
