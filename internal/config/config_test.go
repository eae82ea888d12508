package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PARRILLAS_BACKEND", "PARRILLAS_USER_ID", "PARRILLAS_DB", "PARRILLAS_FILES_DIR",
		"PARRILLAS_FILES_BASE_URL", "PARRILLAS_LOG_LEVEL", "PARRILLAS_LOG_FILE",
		"SUPABASE_URL", "VITE_SUPABASE_URL", "SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY",
		"SUPABASE_ACCESS_TOKEN", "SUPABASE_JWT_SECRET", "SUPABASE_DB_URL", "DATABASE_URL",
		"SUPABASE_S3_ENDPOINT", "SUPABASE_S3_REGION", "SUPABASE_S3_ACCESS_KEY", "SUPABASE_S3_SECRET_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, filepath.Join(dir, "parrillas.db"), cfg.Local.DBPath)
	assert.Equal(t, filepath.Join(dir, "files"), cfg.Local.FilesDir)
	assert.True(t, cfg.Notify.DesktopEnabled())
	require.NoError(t, cfg.Validate())
}

func TestSaveThenLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg := &Config{Backend: BackendLocal, UserID: "u-1"}
	require.NoError(t, cfg.Save(dir))

	info, err := os.Stat(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	t.Setenv("PARRILLAS_USER_ID", "u-2")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "u-2", got.UserID)
	assert.Equal(t, "https://abc.supabase.co/storage/v1/s3", got.Supabase.S3Endpoint)
}

func TestValidate_RemoteRequiresSupabase(t *testing.T) {
	cfg := &Config{Backend: BackendRemote}
	err := cfg.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "required", verr.Errors["supabase.url"])
	assert.Equal(t, "required", verr.Errors["supabase.accessToken"])

	cfg.Supabase = SupabaseConfig{
		URL:         "https://abc.supabase.co",
		AnonKey:     "anon",
		AccessToken: "tok",
		DatabaseURL: "postgres://postgres@db.abc.supabase.co:5432/postgres",
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_BadBackendAndLevel(t *testing.T) {
	cfg := &Config{Backend: "cloud", Log: LogConfig{Level: "loud"}}
	err := cfg.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "backend")
	assert.Contains(t, verr.Errors, "level")
}
