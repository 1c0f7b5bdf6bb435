package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MIT_WORKER_SECRET", "worker-secret")
	t.Setenv("DATABASE_URL", "postgres://gateway:pw@localhost:5432/gateway")
	t.Setenv("R2_BASE", "https://bucket.internal")
	t.Setenv("R2_PUBLIC_BASE", "https://pub.example.com")
	t.Setenv("GATEWAY_CONFIG", "")
}

func writeConfigFile(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadConfigFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("R2_SECRET", "bucket-secret")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "worker-secret", cfg.Worker.Secret)
	assert.Equal(t, "http", cfg.Blob.Driver)
	assert.Equal(t, "https://bucket.internal", cfg.Blob.Base)
	assert.Equal(t, "bucket-secret", cfg.Blob.Secret)
	assert.Equal(t, "https://pub.example.com", cfg.Blob.PublicBase)
}

func TestLoadConfigFromFile(t *testing.T) {
	setRequiredEnv(t)

	path := writeConfigFile(t, `
server:
  host: 127.0.0.1
  port: 4000
cors:
  origins:
    - https://translate.example.com
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, []string{"https://translate.example.com"}, cfg.CORS.Origins)
}

func TestEnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")

	path := writeConfigFile(t, `
server:
  port: 4000
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "missing worker secret", unset: "MIT_WORKER_SECRET"},
		{name: "missing database url", unset: "DATABASE_URL"},
		{name: "missing blob base", unset: "R2_BASE"},
		{name: "missing public base", unset: "R2_PUBLIC_BASE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigS3Driver(t *testing.T) {
	setRequiredEnv(t)
	path := writeConfigFile(t, `
blob:
  driver: s3
`)

	// Without credentials the s3 driver must fail validation.
	_, err := LoadConfig(path)
	require.Error(t, err)

	t.Setenv("S3_BUCKET", "images")
	t.Setenv("S3_ACCESS_KEY_ID", "AKIA")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "images", cfg.Blob.S3.Bucket)
	assert.Equal(t, "auto", cfg.Blob.S3.Region)
}

func TestLoadConfigUnknownDriver(t *testing.T) {
	setRequiredEnv(t)
	path := writeConfigFile(t, `
blob:
  driver: carrier-pigeon
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
