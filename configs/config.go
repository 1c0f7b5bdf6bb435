// Package configs loads gateway configuration from config.yaml and the
// environment. Environment variables take precedence over file values.
package configs

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Worker   WorkerConfig
	Blob     BlobConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type WorkerConfig struct {
	// Secret authenticates MIT worker connections (x-secret header).
	Secret string `mapstructure:"secret"`
}

// BlobConfig selects and configures the object store. Driver "http" talks
// to a secret-guarded HTTP facade; driver "s3" talks to any S3-compatible
// endpoint.
type BlobConfig struct {
	Driver     string `mapstructure:"driver"`
	Base       string `mapstructure:"base"`
	PublicBase string `mapstructure:"public_base"`
	Secret     string `mapstructure:"secret"`
	S3         S3Config
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type CORSConfig struct {
	// Origins allowed beyond localhost.
	Origins []string `mapstructure:"origins"`
}

// LoadConfig reads configPath, falling back to ./configs/config.yaml and
// ./config.yaml. A missing file is fine; the environment can carry the
// whole configuration.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known variable names used by deployments.
	bindings := map[string]string{
		"server.port":               "PORT",
		"database.url":              "DATABASE_URL",
		"worker.secret":             "MIT_WORKER_SECRET",
		"blob.base":                 "R2_BASE",
		"blob.public_base":          "R2_PUBLIC_BASE",
		"blob.secret":               "R2_SECRET",
		"blob.s3.endpoint":          "S3_ENDPOINT",
		"blob.s3.region":            "S3_REGION",
		"blob.s3.bucket":            "S3_BUCKET",
		"blob.s3.access_key_id":     "S3_ACCESS_KEY_ID",
		"blob.s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func findConfigFile() string {
	if envPath := os.Getenv("GATEWAY_CONFIG"); envPath != "" {
		return envPath
	}
	for _, candidate := range []string{"./configs/config.yaml", "./config.yaml"} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("blob.driver", "http")
	v.SetDefault("blob.s3.region", "auto")
}

func validateConfig(config *Config) error {
	if config.Worker.Secret == "" {
		return fmt.Errorf("worker.secret (MIT_WORKER_SECRET) is required")
	}
	if config.Database.URL == "" {
		return fmt.Errorf("database.url (DATABASE_URL) is required")
	}

	switch config.Blob.Driver {
	case "http":
		if config.Blob.Base == "" || config.Blob.PublicBase == "" {
			return fmt.Errorf("blob.base (R2_BASE) and blob.public_base (R2_PUBLIC_BASE) are required for the http blob driver")
		}
	case "s3":
		s3 := config.Blob.S3
		if s3.Bucket == "" || s3.AccessKeyID == "" || s3.SecretAccessKey == "" {
			return fmt.Errorf("blob.s3.bucket, access_key_id and secret_access_key are required for the s3 blob driver")
		}
		if config.Blob.PublicBase == "" {
			return fmt.Errorf("blob.public_base (R2_PUBLIC_BASE) is required for the s3 blob driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", config.Blob.Driver)
	}

	return nil
}
