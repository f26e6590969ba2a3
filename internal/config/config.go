// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates every section read at startup.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Logger   LoggerConfig
	Dustkid  DustkidConfig
	Lobby    LobbyConfig
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// GetAddr returns the host:port the server binds to.
func (c ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig configures the Postgres connection pool.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// GetDSN builds a libpq-style connection string from the config.
func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig configures the Redis client shared by the event bus and the
// match history cache.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// GetAddr returns the host:port Redis listens on.
func (c RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig configures the admin API's session tokens.
type JWTConfig struct {
	SecretKey     string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// LoggerConfig configures the zerolog-backed logger.
type LoggerConfig struct {
	Level  string
	Pretty bool
}

// DustkidConfig points at the upstream Dustkid/Atlas endpoints the
// ingester and level/user capabilities talk to.
type DustkidConfig struct {
	EventsURL     string
	LevelStatsURL string
	UserSearchURL string
	AtlasURL      string
}

// LobbyConfig tunes the lobby engine's timers and level-draw heuristics.
// Defaults: warmup 4 min, break 15 s, round 1 min, post-round padding
// 2 s, game-over hold 10 s, empty-lobby timeout 5 min.
type LobbyConfig struct {
	WarmupDuration    time.Duration
	BreakDuration     time.Duration
	RoundDuration     time.Duration
	RoundPadding      time.Duration
	GameOverHold      time.Duration
	EmptyLobbyTimeout time.Duration
	MaxLobbyCount     int
	MinSSCount        int
	MaxFastestSS      time.Duration
	MaxDrawAttempts   int
}

// Load builds a Config from environment variables, falling back to
// development-friendly defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "dustforce_relay"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConnections:  getEnvInt("DB_MAX_CONNECTIONS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		JWT: JWTConfig{
			SecretKey:     getEnv("JWT_SECRET_KEY", "dev-secret-change-me"),
			AccessExpiry:  getEnvDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", true),
		},
		Dustkid: DustkidConfig{
			EventsURL:     getEnv("DUSTKID_EVENTS_URL", "https://dustkid.com/backend/events.php"),
			LevelStatsURL: getEnv("DUSTKID_LEVEL_STATS_URL", "https://dustkid.com/json/level/"),
			UserSearchURL: getEnv("DUSTKID_USER_SEARCH_URL", "https://df.hitboxteam.com/backend6/userSearch.php"),
			AtlasURL:      getEnv("ATLAS_DOWNLOADER_URL", "https://atlas.dustforce.com/gi/downloader.php"),
		},
		Lobby: LobbyConfig{
			WarmupDuration:    getEnvDuration("LOBBY_WARMUP_DURATION", 4*time.Minute),
			BreakDuration:     getEnvDuration("LOBBY_BREAK_DURATION", 15*time.Second),
			RoundDuration:     getEnvDuration("LOBBY_ROUND_DURATION", 1*time.Minute),
			RoundPadding:      getEnvDuration("LOBBY_ROUND_PADDING", 2*time.Second),
			GameOverHold:      getEnvDuration("LOBBY_GAME_OVER_HOLD", 10*time.Second),
			EmptyLobbyTimeout: getEnvDuration("LOBBY_EMPTY_TIMEOUT", 5*time.Minute),
			MaxLobbyCount:     getEnvInt("LOBBY_MAX_COUNT", 100),
			MinSSCount:        getEnvInt("LOBBY_MIN_SS_COUNT", 5),
			MaxFastestSS:      getEnvDuration("LOBBY_MAX_FASTEST_SS", 45*time.Second),
			MaxDrawAttempts:   getEnvInt("LOBBY_MAX_DRAW_ATTEMPTS", 50),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
