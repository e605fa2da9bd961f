package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/wfunc/battleship/game"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	TCPAddress     string `mapstructure:"tcp_address"`
	UDPAddress     string `mapstructure:"udp_address"`
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	GRPCAddress    string `mapstructure:"grpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	// SampleInterval is how often match gauges are refreshed.
	SampleInterval int `mapstructure:"sample_interval_ms"`
}

type GameConfig struct {
	BoardSize         int   `mapstructure:"board_size"`
	ShipCount         int   `mapstructure:"ship_count"`
	ShipLength        int   `mapstructure:"ship_length"`
	PlacementAttempts int   `mapstructure:"placement_attempts"`
	FixedLayout       bool  `mapstructure:"fixed_layout"`
	Seed              int64 `mapstructure:"seed"`
}

type DatabaseConfig struct {
	// Driver is one of none, sqlite, postgres, gorm.
	Driver   string         `mapstructure:"driver"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type TracingConfig struct {
	// Endpoint of an OTLP/HTTP collector; empty disables tracing.
	Endpoint string `mapstructure:"endpoint"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.tcp_address", ":5001")
	v.SetDefault("server.udp_address", ":5005")
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":5002")
	v.SetDefault("server.grpc_address", ":5003")
	v.SetDefault("server.metrics_address", ":9090")
	v.SetDefault("server.sample_interval_ms", 5000)

	def := game.DefaultConfig()
	v.SetDefault("game.board_size", def.BoardSize)
	v.SetDefault("game.ship_count", def.ShipCount)
	v.SetDefault("game.ship_length", def.ShipLength)
	v.SetDefault("game.placement_attempts", def.PlacementAttempts)
	v.SetDefault("game.fixed_layout", false)
	v.SetDefault("game.seed", 0)

	v.SetDefault("database.driver", "none")
	v.SetDefault("database.sqlite.path", "battleship.db")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "battleship")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("tracing.endpoint", "")
}

// LoadConfig reads config.yaml from path if present. Every key can be
// overridden from the environment, e.g. BATTLESHIP_GAME_BOARD_SIZE.
func LoadConfig(path string) (config *Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("battleship")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings no match could be played with.
func (c *Config) Validate() error {
	g := c.Game
	if g.BoardSize < 1 {
		return fmt.Errorf("%w: game.board_size must be positive", ErrInvalidConfig)
	}
	if g.ShipCount < 1 || g.ShipLength < 1 {
		return fmt.Errorf("%w: game.ship_count and game.ship_length must be positive", ErrInvalidConfig)
	}
	if g.ShipLength > g.BoardSize || g.ShipCount*g.ShipLength > g.BoardSize*g.BoardSize {
		return fmt.Errorf("%w: %d ships of length %d do not fit a %dx%d board",
			ErrInvalidConfig, g.ShipCount, g.ShipLength, g.BoardSize, g.BoardSize)
	}
	switch c.Database.Driver {
	case "none", "sqlite", "postgres", "gorm":
	default:
		return fmt.Errorf("%w: unknown database.driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	return nil
}

// GameSettings converts the game section into session settings.
func (c *Config) GameSettings() game.Config {
	return game.Config{
		BoardSize:         c.Game.BoardSize,
		ShipCount:         c.Game.ShipCount,
		ShipLength:        c.Game.ShipLength,
		PlacementAttempts: c.Game.PlacementAttempts,
		FixedLayout:       c.Game.FixedLayout,
	}
}
