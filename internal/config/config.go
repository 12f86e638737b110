// Package config loads process configuration from the environment. A .env file
// in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/robalobadob/shashkrid/internal/game"
)

// Disabled turns off an optional listener when used as its address.
const Disabled = "off"

// Config is the game server configuration.
type Config struct {
	GameAddr          string        `env:"SHASHKRID_GAME_ADDR" envDefault:":7025"`
	HTTPAddr          string        `env:"SHASHKRID_HTTP_ADDR" envDefault:":7026"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	DBPath            string        `env:"SHASHKRID_DB_PATH"`
	JWTSecret         string        `env:"JWT_SECRET"`
	AdminPasswordHash string        `env:"SHASHKRID_ADMIN_PASSWORD_HASH"`
	TokenTTL          time.Duration `env:"SHASHKRID_TOKEN_TTL" envDefault:"12h"`
	ClientOrigin      string        `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	MaxQueued         int           `env:"SHASHKRID_MAX_QUEUED" envDefault:"1024"`
	ActionsPerTurn    int           `env:"SHASHKRID_ACTIONS_PER_TURN" envDefault:"3"`
	TurnLimit         int           `env:"SHASHKRID_TURN_LIMIT" envDefault:"50"`
	LayoutFile        string        `env:"SHASHKRID_LAYOUT_FILE"`
}

// Rules returns the engine limits configured for every match.
func (c Config) Rules() game.Rules {
	return game.Rules{ActionsPerTurn: c.ActionsPerTurn, TurnLimit: c.TurnLimit}
}

// HTTPEnabled reports whether the operations surface should listen.
func (c Config) HTTPEnabled() bool {
	return c.HTTPAddr != "" && !strings.EqualFold(c.HTTPAddr, Disabled)
}

// AdminEnabled reports whether admin login is possible.
func (c Config) AdminEnabled() bool { return c.AdminPasswordHash != "" }

// Validate checks values env parsing cannot.
func (c Config) Validate() error {
	var errs []error
	if c.GameAddr == "" {
		errs = append(errs, errors.New("SHASHKRID_GAME_ADDR is required"))
	}
	if c.ActionsPerTurn < 1 {
		errs = append(errs, fmt.Errorf("SHASHKRID_ACTIONS_PER_TURN must be positive, got %d", c.ActionsPerTurn))
	}
	if c.TurnLimit < 1 {
		errs = append(errs, fmt.Errorf("SHASHKRID_TURN_LIMIT must be positive, got %d", c.TurnLimit))
	}
	if c.MaxQueued < 0 {
		errs = append(errs, fmt.Errorf("SHASHKRID_MAX_QUEUED must not be negative, got %d", c.MaxQueued))
	}
	if c.AdminEnabled() && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when SHASHKRID_ADMIN_PASSWORD_HASH is set"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("SHASHKRID_TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}
	return errors.Join(errs...)
}

// ClientConfig is the command-line client configuration.
type ClientConfig struct {
	Server     string `env:"SHASHKRID_SERVER" envDefault:"localhost:7025"`
	Player     string `env:"SHASHKRID_PLAYER,required"`
	Game       string `env:"SHASHKRID_GAME" envDefault:"default"`
	WantsBlack bool   `env:"SHASHKRID_WANTS_BLACK" envDefault:"true"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env (if any) and parses the server configuration.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := parse(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadClient reads .env (if any) and parses the client configuration.
func LoadClient() (ClientConfig, error) {
	_ = godotenv.Load()
	var cfg ClientConfig
	if err := parse(&cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func parse(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ApplyLogLevel sets the global zerolog level. Unknown levels are ignored.
func ApplyLogLevel(level string) {
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}
