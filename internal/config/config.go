// Package config provides configuration management for the RunBattle service.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Race     RaceConfig     `mapstructure:"race" validate:"required"`
	Filter   FilterConfig   `mapstructure:"filter" validate:"required"`
	Baseline BaselineConfig `mapstructure:"baseline" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
	Health   HealthConfig   `mapstructure:"health" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ServerConfig represents the WebSocket gateway listener configuration
type ServerConfig struct {
	Host                string  `mapstructure:"host" validate:"required"`
	Port                int     `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds  int     `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
	WriteTimeoutSeconds int     `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
	PingIntervalSeconds int     `mapstructure:"ping_interval_seconds" validate:"required,gt=0"`
	MaxMessageSizeBytes int64   `mapstructure:"max_message_size_bytes" validate:"required,gt=0"`
	MessagesPerSecond   float64 `mapstructure:"messages_per_second" validate:"required,gt=0"`
	MessageBurst        int     `mapstructure:"message_burst" validate:"required,gt=0"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// RedisConfig represents the optional cross-instance fanout configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// RaceConfig represents race session lifecycle configuration
type RaceConfig struct {
	CountdownSeconds      int    `mapstructure:"countdown_seconds" validate:"required,gt=0"`
	GraceTimeoutSeconds   int    `mapstructure:"grace_timeout_seconds" validate:"required,gt=0"`
	MinParticipants       int    `mapstructure:"min_participants" validate:"required,min=2"`
	EventQueueSize        int    `mapstructure:"event_queue_size" validate:"required,gt=0"`
	PersistTimeoutSeconds int    `mapstructure:"persist_timeout_seconds" validate:"required,gt=0"`
	LobbyTTLMinutes       int    `mapstructure:"lobby_ttl_minutes" validate:"required,gt=0"`
	LobbySweepSchedule    string `mapstructure:"lobby_sweep_schedule" validate:"required"`
}

// FilterConfig represents GPS position filter thresholds
type FilterConfig struct {
	MaxAccuracyM float64 `mapstructure:"max_accuracy_m" validate:"required,gt=0"`
	MaxJumpM     float64 `mapstructure:"max_jump_m" validate:"required,gt=0"`
	MinMoveM     float64 `mapstructure:"min_move_m" validate:"required,gt=0"`
}

// BaselineConfig represents the run-history service client configuration
type BaselineConfig struct {
	BaseURL         string `mapstructure:"base_url" validate:"required,url"`
	APIKey          string `mapstructure:"api_key"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries      int    `mapstructure:"max_retries" validate:"gte=0"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize    int    `mapstructure:"cache_max_size" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health endpoint configuration
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gateway listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Countdown returns the countdown phase duration
func (rc *RaceConfig) Countdown() time.Duration {
	return time.Duration(rc.CountdownSeconds) * time.Second
}

// GraceTimeout returns the grace window duration
func (rc *RaceConfig) GraceTimeout() time.Duration {
	return time.Duration(rc.GraceTimeoutSeconds) * time.Second
}

// PersistTimeout returns the result persistence deadline
func (rc *RaceConfig) PersistTimeout() time.Duration {
	return time.Duration(rc.PersistTimeoutSeconds) * time.Second
}

// LobbyTTL returns how long an idle lobby may wait before expiry
func (rc *RaceConfig) LobbyTTL() time.Duration {
	return time.Duration(rc.LobbyTTLMinutes) * time.Minute
}
