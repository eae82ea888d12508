package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

type Config struct {
	Backend string `json:"backend" validate:"oneof=local remote"`

	// UserID is the acting user for the local backend.
	UserID string `json:"userId,omitempty"`

	Local    LocalConfig    `json:"local"`
	Supabase SupabaseConfig `json:"supabase"`
	Log      LogConfig      `json:"log"`
	Notify   NotifyConfig   `json:"notify"`
}

type LocalConfig struct {
	// DBPath defaults to <config dir>/parrillas.db.
	DBPath string `json:"dbPath,omitempty"`
	// FilesDir defaults to <config dir>/files.
	FilesDir string `json:"filesDir,omitempty"`
	// FilesBaseURL prefixes public URLs of stored files. Defaults to file://<FilesDir>.
	FilesBaseURL string `json:"filesBaseUrl,omitempty" validate:"omitempty,url"`
}

type SupabaseConfig struct {
	URL         string `json:"url" validate:"required,url"`
	AnonKey     string `json:"anonKey" validate:"required"`
	AccessToken string `json:"accessToken" validate:"required"`
	JWTSecret   string `json:"jwtSecret,omitempty"`
	DatabaseURL string `json:"databaseUrl" validate:"required"`

	S3Endpoint  string `json:"s3Endpoint,omitempty" validate:"omitempty,url"`
	S3Region    string `json:"s3Region,omitempty"`
	S3AccessKey string `json:"s3AccessKey,omitempty"`
	S3SecretKey string `json:"s3SecretKey,omitempty"`
}

type LogConfig struct {
	Level string `json:"level,omitempty" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	File  string `json:"file,omitempty"`
}

type NotifyConfig struct {
	Desktop *bool `json:"desktop,omitempty"`
	Sound   *bool `json:"sound,omitempty"`
}

func (n NotifyConfig) DesktopEnabled() bool { return n.Desktop == nil || *n.Desktop }
func (n NotifyConfig) SoundEnabled() bool   { return n.Sound == nil || *n.Sound }

func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("PARRILLAS_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".parrillas"), nil
}

func Path(dir string) string {
	return filepath.Join(dir, "config.json")
}

// Load reads <dir>/config.json (missing file means defaults), then a .env file from
// the working directory, then environment overrides. An empty dir resolves via Dir.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		d, err := Dir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	cfg := &Config{}
	b, err := os.ReadFile(Path(dir))
	switch {
	case err == nil:
		if err := json.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", Path(dir), err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults(dir)
	return cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.Backend, "PARRILLAS_BACKEND")
	set(&c.UserID, "PARRILLAS_USER_ID")
	set(&c.Local.DBPath, "PARRILLAS_DB")
	set(&c.Local.FilesDir, "PARRILLAS_FILES_DIR")
	set(&c.Local.FilesBaseURL, "PARRILLAS_FILES_BASE_URL")
	set(&c.Log.Level, "PARRILLAS_LOG_LEVEL")
	set(&c.Log.File, "PARRILLAS_LOG_FILE")

	set(&c.Supabase.URL, "SUPABASE_URL", "VITE_SUPABASE_URL")
	set(&c.Supabase.AnonKey, "SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY")
	set(&c.Supabase.AccessToken, "SUPABASE_ACCESS_TOKEN")
	set(&c.Supabase.JWTSecret, "SUPABASE_JWT_SECRET")
	set(&c.Supabase.DatabaseURL, "SUPABASE_DB_URL", "DATABASE_URL")
	set(&c.Supabase.S3Endpoint, "SUPABASE_S3_ENDPOINT")
	set(&c.Supabase.S3Region, "SUPABASE_S3_REGION")
	set(&c.Supabase.S3AccessKey, "SUPABASE_S3_ACCESS_KEY")
	set(&c.Supabase.S3SecretKey, "SUPABASE_S3_SECRET_KEY")
}

func (c *Config) applyDefaults(dir string) {
	if strings.TrimSpace(c.Backend) == "" {
		c.Backend = BackendLocal
	}
	if c.Local.DBPath == "" {
		c.Local.DBPath = filepath.Join(dir, "parrillas.db")
	}
	if c.Local.FilesDir == "" {
		c.Local.FilesDir = filepath.Join(dir, "files")
	}
	if c.Supabase.S3Endpoint == "" && c.Supabase.URL != "" {
		c.Supabase.S3Endpoint = strings.TrimRight(c.Supabase.URL, "/") + "/storage/v1/s3"
	}
	if c.Supabase.S3Region == "" {
		c.Supabase.S3Region = "us-east-1"
	}
}

// ValidationError lists failing fields by their JSON name.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for field, msg := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return "invalid config: " + strings.Join(parts, "; ")
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the top-level settings and, for the remote backend, the Supabase block.
func (c *Config) Validate() error {
	v := newValidator()
	out := map[string]string{}
	collect := func(prefix string, err error) error {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			out[prefix+fe.Field()] = fe.Tag()
		}
		return nil
	}

	if err := v.Struct(struct {
		Backend string      `json:"backend" validate:"oneof=local remote"`
		Local   LocalConfig `json:"local"`
		Log     LogConfig   `json:"log"`
	}{c.Backend, c.Local, c.Log}); err != nil {
		if err := collect("", err); err != nil {
			return err
		}
	}
	if c.Backend == BackendRemote {
		if err := v.Struct(c.Supabase); err != nil {
			if err := collect("supabase.", err); err != nil {
				return err
			}
		}
	}
	if len(out) > 0 {
		return &ValidationError{Errors: out}
	}
	return nil
}

func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.json.*.tmp", Path(dir), b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
