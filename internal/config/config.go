// Package config provides centralized configuration for the gunplay server.
// All tunable values live here as a single source of truth.
//
// Values are resolved by viper in this order: GUNPLAY_* environment
// variables, then an optional gunplay.yaml, then the defaults below.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// FRAME CONFIGURATION
// =============================================================================

// FrameConfig holds the simulation loop settings.
type FrameConfig struct {
	FPS      int     `mapstructure:"fps"`
	MaxDelta float64 `mapstructure:"max_delta"` // seconds, clamp for slow frames
}

// DefaultFrame returns the default frame configuration.
func DefaultFrame() FrameConfig {
	return FrameConfig{
		FPS:      60,
		MaxDelta: 0.016,
	}
}

// TickInterval returns the time between engine ticks.
func (f FrameConfig) TickInterval() time.Duration {
	if f.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(f.FPS)
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP and WebSocket settings.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	DebugAddr      string   `mapstructure:"debug_addr"` // metrics and pprof, localhost only
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RatePerSecond  float64  `mapstructure:"rate_per_second"` // per-IP HTTP requests
	RateBurst      int      `mapstructure:"rate_burst"`
	MaxWSPerIP     int      `mapstructure:"max_ws_per_ip"`
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		DebugAddr:      "127.0.0.1:6060",
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		RatePerSecond:  10,
		RateBurst:      20,
		MaxWSPerIP:     5,
	}
}

// Addr returns the listen address for the API server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits defines hard caps to prevent DoS attacks.
type ResourceLimits struct {
	MaxSessions int `mapstructure:"max_sessions"`

	// Per-session input queue: buffered events between frames and the
	// sustained press rate with its burst.
	InputBuffer int     `mapstructure:"input_buffer"`
	InputRate   float64 `mapstructure:"input_rate"`
	InputBurst  int     `mapstructure:"input_burst"`

	RecentSessions int `mapstructure:"recent_sessions"` // max rows returned by the stats endpoint
}

// DefaultLimits returns production-safe default limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxSessions:    256,
		InputBuffer:    256,
		InputRate:      60,
		InputBurst:     30,
		RecentSessions: 50,
	}
}

// =============================================================================
// STORAGE CONFIGURATION
// =============================================================================

// StorageConfig holds persistence paths. Empty paths keep data in memory.
type StorageConfig struct {
	StatsPath    string `mapstructure:"stats_path"`
	EventLogPath string `mapstructure:"event_log_path"`
}

// DefaultStorage returns the default storage configuration.
func DefaultStorage() StorageConfig {
	return StorageConfig{
		StatsPath:    "data/stats.db",
		EventLogPath: "",
	}
}

// =============================================================================
// LOG CONFIGURATION
// =============================================================================

// LogConfig controls the root logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// DefaultLog returns the default log configuration.
func DefaultLog() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "console",
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Frame   FrameConfig    `mapstructure:"frame"`
	Server  ServerConfig   `mapstructure:"server"`
	Limits  ResourceLimits `mapstructure:"limits"`
	Storage StorageConfig  `mapstructure:"storage"`
	Log     LogConfig      `mapstructure:"log"`
}

// Default returns the complete configuration without overrides.
func Default() AppConfig {
	return AppConfig{
		Frame:   DefaultFrame(),
		Server:  DefaultServer(),
		Limits:  DefaultLimits(),
		Storage: DefaultStorage(),
		Log:     DefaultLog(),
	}
}

// ErrInvalid is wrapped by Validate failures.
var ErrInvalid = errors.New("invalid configuration")

// Validate rejects values the server cannot run with.
func (c AppConfig) Validate() error {
	switch {
	case c.Frame.FPS <= 0:
		return fmt.Errorf("%w: frame.fps must be positive", ErrInvalid)
	case c.Frame.MaxDelta <= 0:
		return fmt.Errorf("%w: frame.max_delta must be positive", ErrInvalid)
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	case c.Limits.MaxSessions <= 0:
		return fmt.Errorf("%w: limits.max_sessions must be positive", ErrInvalid)
	}
	return nil
}

// Load returns the complete configuration with environment and file
// overrides. Extra search paths for gunplay.yaml may be given; the working
// directory is always searched.
func Load(paths ...string) (AppConfig, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigName("gunplay")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("GUNPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return AppConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// setDefaults registers every key so AutomaticEnv can find it.
func setDefaults(v *viper.Viper, d AppConfig) {
	v.SetDefault("frame.fps", d.Frame.FPS)
	v.SetDefault("frame.max_delta", d.Frame.MaxDelta)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.debug_addr", d.Server.DebugAddr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.rate_per_second", d.Server.RatePerSecond)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)
	v.SetDefault("server.max_ws_per_ip", d.Server.MaxWSPerIP)

	v.SetDefault("limits.max_sessions", d.Limits.MaxSessions)
	v.SetDefault("limits.input_buffer", d.Limits.InputBuffer)
	v.SetDefault("limits.input_rate", d.Limits.InputRate)
	v.SetDefault("limits.input_burst", d.Limits.InputBurst)
	v.SetDefault("limits.recent_sessions", d.Limits.RecentSessions)

	v.SetDefault("storage.stats_path", d.Storage.StatsPath)
	v.SetDefault("storage.event_log_path", d.Storage.EventLogPath)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
