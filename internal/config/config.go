// Package config loads the repcoach configuration from a TOML file with one
// section per environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ayusman/repcoach/internal/exercise"
)

// Environment variables read by Load, possibly from a .env file.
const (
	EnvName   = "REPCOACH_ENV"
	EnvConfig = "REPCOACH_CONFIG"
	EnvDB     = "REPCOACH_DB"
)

// ProfileOverride replaces the thresholds of one exercise.
type ProfileOverride struct {
	DownThreshold      float64 `toml:"down_threshold" validate:"gte=0,lte=180,ltfield=UpThreshold"`
	UpThreshold        float64 `toml:"up_threshold" validate:"gte=0,lte=180"`
	RepCooldownSeconds float64 `toml:"rep_cooldown_seconds" validate:"gte=0"`
	CaloriesPerRep     float64 `toml:"calories_per_rep" validate:"gte=0"`
}

type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=1,lte=65535"`
	// logging
	LogLevel    string `toml:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`
	LogJSON     bool   `toml:"log_json"`
	// storage
	DBPath string `toml:"db_path" validate:"required"`
	// capture
	CameraID        int     `toml:"camera_id" validate:"gte=0"`
	VideoFile       string  `toml:"video_file"`
	MotionThreshold float64 `toml:"motion_threshold" validate:"gte=0,lte=100"`
	// session
	DefaultExercise   string  `toml:"default_exercise" validate:"required"`
	MilestoneEvery    int     `toml:"milestone_every" validate:"gte=0"`
	PostureThreshold  float64 `toml:"posture_threshold" validate:"gte=0,lte=180"`
	FormWarningBelow  int     `toml:"form_warning_below" validate:"gte=0,lte=100"`
	PluginDir         string  `toml:"plugin_dir"`
	PluginTimeoutSecs int     `toml:"plugin_timeout_seconds" validate:"gte=0"`
	MetricsEnabled    bool    `toml:"metrics_enabled"`

	Profiles map[string]ProfileOverride `toml:"profiles" validate:"dive"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Host:              "127.0.0.1",
		Port:              8765,
		LogLevel:          "info",
		LogToStdout:       true,
		DBPath:            defaultDBPath(),
		MotionThreshold:   1.0,
		DefaultExercise:   "pushup",
		MilestoneEvery:    10,
		PostureThreshold:  160,
		FormWarningBelow:  60,
		PluginDir:         "plugins",
		PluginTimeoutSecs: 5,
		MetricsEnabled:    true,
	}
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "repcoach.db"
	}
	return dir + string(os.PathSeparator) + "repcoach" + string(os.PathSeparator) + "workouts.db"
}

// Load reads the section for env from the TOML file at path. A .env file in
// the working directory is loaded first; REPCOACH_ENV, REPCOACH_CONFIG and
// REPCOACH_DB override empty arguments and the database path. A missing
// file yields the defaults.
func Load(env, path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if env == "" {
		env = os.Getenv(EnvName)
	}
	if env == "" {
		env = "development"
	}
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := Default()
	if path != "" {
		loaded, err := readFile(env, path)
		if err != nil {
			return nil, err
		}
		if loaded != nil {
			cfg = loaded
		}
	}

	if db := os.Getenv(EnvDB); db != "" {
		cfg.DBPath = db
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(env, path string) (*Config, error) {
	t := Toml{Development: Default(), Production: Default()}
	if _, err := toml.DecodeFile(path, &t); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config %s has no %s section", path, env)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and profile overrides.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PluginTimeout returns the plugin execution timeout.
func (c *Config) PluginTimeout() time.Duration {
	return time.Duration(c.PluginTimeoutSecs) * time.Second
}

// ExerciseProfiles returns the built-in profiles with the overrides applied.
// Overrides for unknown names add new profiles.
func (c *Config) ExerciseProfiles() exercise.Profiles {
	profiles := exercise.DefaultProfiles()
	for name, o := range c.Profiles {
		profile, ok := profiles.Get(name)
		if !ok {
			profile = exercise.Profile{Name: name}
		}
		profile.DownThreshold = o.DownThreshold
		profile.UpThreshold = o.UpThreshold
		profile.RepCooldown = time.Duration(o.RepCooldownSeconds * float64(time.Second))
		if o.CaloriesPerRep > 0 {
			profile.CaloriesPerRep = o.CaloriesPerRep
		}
		profiles = profiles.With(profile)
	}
	return profiles
}
