// Package config loads runtime configuration for the gophchat CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Optional dotenv file (-e or -env, default ".env") merged into the
//     process environment, then GOPHCHAT_* variables (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the chat backend
//	-s string   Supabase project URL
//	-k string   Supabase anon key
//	-b string   session store: sqlite, postgres or supabase
//	-d string   postgres DSN
//	-D string   local data directory
//	-t int      auth bootstrap timeout (seconds)
//	-i int      backend health check interval (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "chat_api_base_url": "http://localhost:5000",
//	  "supabase_url": "https://xyz.supabase.co",
//	  "supabase_anon_key": "...",
//	  "store": "supabase",
//	  "auth_timeout": "3s",
//	  "autosave_delay": "2s",
//	  "health_check_interval": "30s"
//	}
package config
