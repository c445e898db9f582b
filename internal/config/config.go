package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"reader-sync/internal/domain"
)

const (
	RemoteBackendREST     = "rest"
	RemoteBackendSupabase = "supabase"

	PositionStoreSQLite = "sqlite"
	PositionStoreRedis  = "redis"
)

var defaultAllowedOrigins = []string{
	"http://localhost:5173", // SvelteKit dev server
	"http://localhost:4173", // SvelteKit preview
	"http://localhost:3000", // Alternative dev port
}

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort     string
	LogLevel       string
	RemoteBackend  string
	RemoteBaseURL  string
	RemoteTimeout  time.Duration
	SupabaseURL    string
	SupabaseKey    string
	PositionStore  string
	DatabasePath   string
	RedisURL       string
	ScrollDebounce time.Duration
	MaxNoteLength  int
	AllowedOrigins []string
}

// NewConfig reads the configuration from the environment.
func NewConfig() domain.Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("remote_backend", RemoteBackendREST)
	v.SetDefault("remote_base_url", "http://localhost:8000")
	v.SetDefault("remote_timeout", "10s")
	v.SetDefault("supabase_url", "")
	v.SetDefault("supabase_anon_key", "")
	v.SetDefault("position_store", PositionStoreSQLite)
	v.SetDefault("database_path", "./reader-sync.db")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("scroll_debounce", "400ms")
	v.SetDefault("max_note_length", domain.DefaultMaxNoteLength)
	v.SetDefault("allowed_origins", "")

	// Cloud Run (and many PaaS) provide the listening port via PORT.
	// Keep SERVER_PORT for local/dev compatibility.
	port := v.GetString("PORT")
	if port == "" {
		port = v.GetString("SERVER_PORT")
	}

	maxNote := v.GetInt("MAX_NOTE_LENGTH")
	if maxNote <= 0 {
		maxNote = domain.DefaultMaxNoteLength
	}

	return &AppConfig{
		ServerPort:     port,
		LogLevel:       v.GetString("LOG_LEVEL"),
		RemoteBackend:  strings.ToLower(v.GetString("REMOTE_BACKEND")),
		RemoteBaseURL:  v.GetString("REMOTE_BASE_URL"),
		RemoteTimeout:  v.GetDuration("REMOTE_TIMEOUT"),
		SupabaseURL:    v.GetString("SUPABASE_URL"),
		SupabaseKey:    v.GetString("SUPABASE_ANON_KEY"),
		PositionStore:  strings.ToLower(v.GetString("POSITION_STORE")),
		DatabasePath:   v.GetString("DATABASE_PATH"),
		RedisURL:       v.GetString("REDIS_URL"),
		ScrollDebounce: v.GetDuration("SCROLL_DEBOUNCE"),
		MaxNoteLength:  maxNote,
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS"), defaultAllowedOrigins),
	}
}

func splitList(raw string, fallback []string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetRemoteBackend returns "rest" or "supabase"
func (c *AppConfig) GetRemoteBackend() string {
	return c.RemoteBackend
}

func (c *AppConfig) GetRemoteBaseURL() string {
	return c.RemoteBaseURL
}

func (c *AppConfig) GetRemoteTimeout() time.Duration {
	return c.RemoteTimeout
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetPositionStore returns "sqlite" or "redis"
func (c *AppConfig) GetPositionStore() string {
	return c.PositionStore
}

func (c *AppConfig) GetDatabasePath() string {
	return c.DatabasePath
}

func (c *AppConfig) GetRedisURL() string {
	return c.RedisURL
}

func (c *AppConfig) GetScrollDebounce() time.Duration {
	return c.ScrollDebounce
}

func (c *AppConfig) GetMaxNoteLength() int {
	return c.MaxNoteLength
}

func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}
