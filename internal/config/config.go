package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the format of calendar dates in configuration.
const DateLayout = "2006-01-02"

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Data         DataConfig         `yaml:"data"`
	Uploads      UploadsConfig      `yaml:"uploads"`
	Session      SessionConfig      `yaml:"session"`
	Auth         AuthConfig         `yaml:"auth"`
	Roles        RolesConfig        `yaml:"roles"`
	Gallery      GalleryConfig      `yaml:"gallery"`
	Backup       BackupConfig       `yaml:"backup"`
	Log          LogConfig          `yaml:"log"`
	Relationship RelationshipConfig `yaml:"relationship"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DataConfig locates the persisted documents and the session database.
type DataConfig struct {
	DocumentPath  string `yaml:"document_path"`
	MusicPath     string `yaml:"music_path"`
	SessionDBPath string `yaml:"session_db_path"`
}

// UploadsConfig contains uploaded file storage settings.
type UploadsConfig struct {
	GalleryDir string `yaml:"gallery_dir"`
	PhotosDir  string `yaml:"photos_dir"`
	MaxBytes   int64  `yaml:"max_bytes"`
}

// SessionConfig contains session cookie and lifetime settings.
type SessionConfig struct {
	CookieName    string   `yaml:"cookie_name"`
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
	Secure        bool     `yaml:"secure"`
}

// AuthConfig contains login settings.
type AuthConfig struct {
	PrimaryRole     string `yaml:"primary_role"`
	SecondaryRole   string `yaml:"secondary_role"`
	LoginsPerMinute int    `yaml:"logins_per_minute"`
	LoginBurst      int    `yaml:"login_burst"`
}

// RolesConfig overrides the allowed roles per resource and operation,
// e.g. roles.music.delete: [admin, guest].
type RolesConfig map[string]map[string][]string

// GalleryConfig contains gallery sync settings.
type GalleryConfig struct {
	// KeepNotes carries notes of already known images across restarts.
	// When false every restart starts all notes empty.
	KeepNotes bool `yaml:"keep_notes"`
}

// BackupConfig contains S3-compatible backup settings.
// An empty bucket disables backups.
type BackupConfig struct {
	Bucket    string   `yaml:"bucket"`
	Endpoint  string   `yaml:"endpoint"`
	Region    string   `yaml:"region"`
	Prefix    string   `yaml:"prefix"`
	AccessKey string   `yaml:"-"` // env-only, never in YAML
	SecretKey string   `yaml:"-"` // env-only, never in YAML
	UseSSL    *bool    `yaml:"use_ssl"`
	URLExpiry Duration `yaml:"url_expiry"`
	Interval  Duration `yaml:"interval"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RelationshipConfig feeds the dashboard.
type RelationshipConfig struct {
	Start string `yaml:"start"`
	Bio   string `yaml:"bio"`
}

// StartDate returns the parsed relationship start date.
func (r RelationshipConfig) StartDate() (time.Time, error) {
	return time.ParseInLocation(DateLayout, r.Start, time.Local)
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	// Determine config path
	configPath := getEnv("KEEPSAKE_CONFIG_PATH", "config/keepsake.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	// Load YAML file (file must exist for this function)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	useSSL := true
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Data: DataConfig{
			DocumentPath:  "data/db.json",
			MusicPath:     "data/music.json",
			SessionDBPath: "data/sessions.db",
		},
		Uploads: UploadsConfig{
			GalleryDir: "static/uploads",
			PhotosDir:  "static/memory_photos",
			MaxBytes:   16 << 20,
		},
		Session: SessionConfig{
			CookieName:    "keepsake_session",
			TTL:           Duration(7 * 24 * time.Hour),
			SweepInterval: Duration(1 * time.Hour),
		},
		Auth: AuthConfig{
			PrimaryRole:     "admin",
			SecondaryRole:   "guest",
			LoginsPerMinute: 10,
			LoginBurst:      5,
		},
		Backup: BackupConfig{
			Region:    "us-east-1",
			Prefix:    "keepsake",
			UseSSL:    &useSSL,
			URLExpiry: Duration(15 * time.Minute),
			Interval:  Duration(24 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Relationship: RelationshipConfig{
			Start: "2025-09-13",
			Bio:   "A curated place for our memories, ideas and photos.",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file is OK; use defaults
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty, parseable env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	envInt("KEEPSAKE_PORT", &cfg.Server.Port)
	envDuration("KEEPSAKE_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("KEEPSAKE_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("KEEPSAKE_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Data
	envString("KEEPSAKE_DOCUMENT_PATH", &cfg.Data.DocumentPath)
	envString("KEEPSAKE_MUSIC_PATH", &cfg.Data.MusicPath)
	envString("KEEPSAKE_SESSION_DB_PATH", &cfg.Data.SessionDBPath)

	// Uploads
	envString("KEEPSAKE_GALLERY_DIR", &cfg.Uploads.GalleryDir)
	envString("KEEPSAKE_PHOTOS_DIR", &cfg.Uploads.PhotosDir)
	if v := os.Getenv("KEEPSAKE_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Uploads.MaxBytes = n
		}
	}

	// Session
	envString("KEEPSAKE_SESSION_COOKIE", &cfg.Session.CookieName)
	envDuration("KEEPSAKE_SESSION_TTL", &cfg.Session.TTL)
	envDuration("KEEPSAKE_SESSION_SWEEP_INTERVAL", &cfg.Session.SweepInterval)
	envBool("KEEPSAKE_SESSION_SECURE", &cfg.Session.Secure)

	// Auth
	envInt("KEEPSAKE_LOGINS_PER_MINUTE", &cfg.Auth.LoginsPerMinute)
	envInt("KEEPSAKE_LOGIN_BURST", &cfg.Auth.LoginBurst)

	// Gallery
	envBool("KEEPSAKE_GALLERY_KEEP_NOTES", &cfg.Gallery.KeepNotes)

	// Backup
	envString("KEEPSAKE_BACKUP_BUCKET", &cfg.Backup.Bucket)
	envString("KEEPSAKE_S3_ENDPOINT", &cfg.Backup.Endpoint)
	envString("KEEPSAKE_S3_REGION", &cfg.Backup.Region)
	envString("KEEPSAKE_S3_ACCESS_KEY", &cfg.Backup.AccessKey)
	envString("KEEPSAKE_S3_SECRET_KEY", &cfg.Backup.SecretKey)
	if v := os.Getenv("KEEPSAKE_S3_USE_SSL"); v != "" {
		useSSL := v == "true" || v == "1"
		cfg.Backup.UseSSL = &useSSL
	}
	envDuration("KEEPSAKE_S3_URL_EXPIRY", &cfg.Backup.URLExpiry)
	envDuration("KEEPSAKE_BACKUP_INTERVAL", &cfg.Backup.Interval)

	// Log
	envString("KEEPSAKE_LOG_LEVEL", &cfg.Log.Level)
	envString("KEEPSAKE_LOG_FORMAT", &cfg.Log.Format)

	// Relationship
	envString("KEEPSAKE_RELATIONSHIP_START", &cfg.Relationship.Start)
}

// validate checks that configuration values are usable.
func (c *Config) validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Data.DocumentPath == "" {
		errs = append(errs, errors.New("data.document_path is required"))
	}
	if c.Data.MusicPath == "" {
		errs = append(errs, errors.New("data.music_path is required"))
	}
	if c.Data.SessionDBPath == "" {
		errs = append(errs, errors.New("data.session_db_path is required"))
	}
	if c.Uploads.GalleryDir == "" || c.Uploads.PhotosDir == "" {
		errs = append(errs, errors.New("uploads.gallery_dir and uploads.photos_dir are required"))
	}
	if c.Uploads.MaxBytes <= 0 {
		errs = append(errs, errors.New("uploads.max_bytes must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookie_name is required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Auth.PrimaryRole == "" || c.Auth.SecondaryRole == "" {
		errs = append(errs, errors.New("auth.primary_role and auth.secondary_role are required"))
	}
	if c.Auth.LoginsPerMinute < 0 || c.Auth.LoginBurst < 0 {
		errs = append(errs, errors.New("auth login limits must not be negative"))
	}
	if c.Backup.Bucket != "" && c.Backup.Endpoint == "" {
		errs = append(errs, errors.New("backup.endpoint is required when backup.bucket is set"))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	if _, err := c.Relationship.StartDate(); err != nil {
		errs = append(errs, fmt.Errorf("relationship.start: %w", err))
	}

	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}
