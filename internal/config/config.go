// Package config loads server configuration from YAML with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the life game server.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Validation ValidationConfig `mapstructure:"validation"`
	Game       GameConfig       `mapstructure:"game"`
}

// ServerConfig holds transport and session settings.
type ServerConfig struct {
	WebSocket   WebSocketConfig `mapstructure:"websocket"`
	LeasePeriod time.Duration   `mapstructure:"lease_period"`
	MaxSessions int             `mapstructure:"max_sessions"`
}

// WebSocketConfig holds the websocket listener settings.
type WebSocketConfig struct {
	Address         string        `mapstructure:"address"`
	Path            string        `mapstructure:"path"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
}

// DatabaseConfig holds PostgreSQL connection pool settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// DSN returns the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoggingConfig holds zap logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	SessionTokenTTL       time.Duration `mapstructure:"session_token_ttl"`
	PasswordResetTokenTTL time.Duration `mapstructure:"password_reset_token_ttl"`
	BcryptCost            int           `mapstructure:"bcrypt_cost"`
	AdminPassword         string        `mapstructure:"admin_password"`
}

// ValidationConfig holds user input constraints.
type ValidationConfig struct {
	UsernameMinLength int `mapstructure:"username_min_length"`
	UsernameMaxLength int `mapstructure:"username_max_length"`
	PasswordMinLength int `mapstructure:"password_min_length"`
}

// GameConfig holds the default rule settings for new games.
type GameConfig struct {
	DefaultDifficulty string `mapstructure:"default_difficulty"`
	StartingVitality  int    `mapstructure:"starting_vitality"`
	StartingHandSize  int    `mapstructure:"starting_hand_size"`
	MaxHandSize       int    `mapstructure:"max_hand_size"`
	DreamCardCount    int    `mapstructure:"dream_card_count"`
	VictoryThreshold  int    `mapstructure:"victory_threshold"`
	CatalogPath       string `mapstructure:"catalog_path"`
}

// Load reads configuration from the given YAML file. Missing file is not an
// error; defaults and LIFEGAME_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LIFEGAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.read_buffer_size", 4096)
	v.SetDefault("server.websocket.write_buffer_size", 4096)
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.websocket.ping_interval", 30*time.Second)
	v.SetDefault("server.lease_period", 90*time.Second)
	v.SetDefault("server.max_sessions", 1000)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "lifegame")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "lifegame")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.connect_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("auth.session_token_ttl", 24*time.Hour)
	v.SetDefault("auth.password_reset_token_ttl", time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("validation.username_min_length", 3)
	v.SetDefault("validation.username_max_length", 24)
	v.SetDefault("validation.password_min_length", 8)

	v.SetDefault("game.default_difficulty", "normal")
	v.SetDefault("game.starting_vitality", 20)
	v.SetDefault("game.starting_hand_size", 5)
	v.SetDefault("game.max_hand_size", 7)
	v.SetDefault("game.dream_card_count", 3)
	v.SetDefault("game.victory_threshold", 20)
	v.SetDefault("game.catalog_path", "")
}

func (c *Config) validate() error {
	if c.Server.LeasePeriod <= 0 {
		return fmt.Errorf("server.lease_period must be positive")
	}
	if c.Game.StartingHandSize > c.Game.MaxHandSize {
		return fmt.Errorf("game.starting_hand_size %d exceeds game.max_hand_size %d",
			c.Game.StartingHandSize, c.Game.MaxHandSize)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost %d out of range", c.Auth.BcryptCost)
	}
	return nil
}
