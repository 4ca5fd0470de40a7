package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Only fields present in the file override the runtime Config.
type JsonConfig struct {
	ChatAPIBaseURL      *string         `json:"chat_api_base_url"`
	SupabaseURL         *string         `json:"supabase_url"`
	SupabaseAnonKey     *string         `json:"supabase_anon_key"`
	Store               *string         `json:"store"`
	DatabaseDSN         *string         `json:"database_dsn"`
	DataDir             *string         `json:"data_dir"`
	AuthTimeout         *timex.Duration `json:"auth_timeout"`
	AutosaveDelay       *timex.Duration `json:"autosave_delay"`
	HealthCheckInterval *timex.Duration `json:"health_check_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	LogLevel            *string         `json:"log_level"`
	LogFormat           *string         `json:"log_format"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3Endpoint          *string         `json:"s3_endpoint"`
	S3AccessKey         *string         `json:"s3_access_key"`
	S3SecretKey         *string         `json:"s3_secret_key"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. Without the flag nothing happens. Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ChatAPIBaseURL, jc.ChatAPIBaseURL)
	setString(&cfg.SupabaseURL, jc.SupabaseURL)
	setString(&cfg.SupabaseAnonKey, jc.SupabaseAnonKey)
	setString(&cfg.Store, jc.Store)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)

	if jc.AuthTimeout != nil {
		cfg.AuthTimeout = jc.AuthTimeout.Duration
	}
	if jc.AutosaveDelay != nil {
		cfg.AutosaveDelay = jc.AutosaveDelay.Duration
	}
	if jc.HealthCheckInterval != nil {
		cfg.HealthCheckInterval = jc.HealthCheckInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
