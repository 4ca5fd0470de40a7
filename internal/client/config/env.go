package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

const defaultEnvFile = ".env"

// Environment variable names read by parseEnv.
const (
	EnvChatAPIBaseURL      = "GOPHCHAT_API_URL"
	EnvSupabaseURL         = "SUPABASE_URL"
	EnvSupabaseAnonKey     = "SUPABASE_ANON_KEY"
	EnvStore               = "GOPHCHAT_STORE"
	EnvDatabaseDSN         = "GOPHCHAT_DATABASE_DSN"
	EnvDataDir             = "GOPHCHAT_DATA_DIR"
	EnvAuthTimeout         = "GOPHCHAT_AUTH_TIMEOUT"
	EnvAutosaveDelay       = "GOPHCHAT_AUTOSAVE_DELAY"
	EnvHealthCheckInterval = "GOPHCHAT_HEALTH_CHECK_INTERVAL"
	EnvRequestTimeout      = "GOPHCHAT_REQUEST_TIMEOUT"
	EnvLogLevel            = "GOPHCHAT_LOG_LEVEL"
	EnvLogFormat           = "GOPHCHAT_LOG_FORMAT"
	EnvS3Bucket            = "GOPHCHAT_S3_BUCKET"
	EnvS3Region            = "GOPHCHAT_S3_REGION"
	EnvS3Endpoint          = "GOPHCHAT_S3_ENDPOINT"
	EnvS3AccessKey         = "GOPHCHAT_S3_ACCESS_KEY"
	EnvS3SecretKey         = "GOPHCHAT_S3_SECRET_KEY"
)

// parseEnv loads the dotenv file (if any) into the process environment and
// then overlays Config with the variables listed above. Variables already set
// in the environment win over the file. An explicitly named file that cannot
// be loaded panics; a missing default ".env" is ignored.
func parseEnv(cfg *Config) {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	envString(&cfg.ChatAPIBaseURL, EnvChatAPIBaseURL)
	envString(&cfg.SupabaseURL, EnvSupabaseURL)
	envString(&cfg.SupabaseAnonKey, EnvSupabaseAnonKey)
	envString(&cfg.Store, EnvStore)
	envString(&cfg.DatabaseDSN, EnvDatabaseDSN)
	envString(&cfg.DataDir, EnvDataDir)
	envString(&cfg.LogLevel, EnvLogLevel)
	envString(&cfg.LogFormat, EnvLogFormat)
	envString(&cfg.S3Bucket, EnvS3Bucket)
	envString(&cfg.S3Region, EnvS3Region)
	envString(&cfg.S3Endpoint, EnvS3Endpoint)
	envString(&cfg.S3AccessKey, EnvS3AccessKey)
	envString(&cfg.S3SecretKey, EnvS3SecretKey)

	envDuration(&cfg.AuthTimeout, EnvAuthTimeout)
	envDuration(&cfg.AutosaveDelay, EnvAutosaveDelay)
	envDuration(&cfg.HealthCheckInterval, EnvHealthCheckInterval)
	envDuration(&cfg.RequestTimeout, EnvRequestTimeout)
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
