// Package config loads service settings from the environment, an optional
// .env file and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"battlerooms/room"
)

// Config is the battlerooms service configuration.
type Config struct {
	Addr           string        `env:"BATTLEROOMS_ADDR" envDefault:":8080"`
	DBPath         string        `env:"BATTLEROOMS_DB_PATH" envDefault:"battlerooms.db"`
	Cooldown       time.Duration `env:"BATTLEROOMS_COOLDOWN" envDefault:"30s"`
	SealedMaterial string        `env:"BATTLEROOMS_SEALED_MATERIAL" envDefault:"blue_stained_glass"`
	Worlds         []string      `env:"BATTLEROOMS_WORLDS" envDefault:"world" envSeparator:","`
	OTelEndpoint   string        `env:"BATTLEROOMS_OTEL_ENDPOINT"`
	OTelSample     float64       `env:"BATTLEROOMS_OTEL_SAMPLE_RATIO" envDefault:"1"`
	LogLevel       slog.Level    `env:"BATTLEROOMS_LOG_LEVEL" envDefault:"INFO"`

	Messages Messages `envPrefix:"BATTLEROOMS_MSG_"`
}

// Messages are the player-facing announcement templates.
type Messages struct {
	Entered          string `env:"ENTERED" envDefault:"You have entered the {room} room ({type})"`
	BattleBegun      string `env:"BATTLE_BEGUN" envDefault:"The battle has begun! The room is now sealed!"`
	PlayerWins       string `env:"PLAYER_WINS" envDefault:"{winner} has won the battle in {room}!"`
	NoWinner         string `env:"NO_WINNER" envDefault:"The battle in {room} has ended with no winner!"`
	RoomReopening    string `env:"ROOM_REOPENING" envDefault:"{room} will reopen shortly."`
	CommandsDisabled string `env:"COMMANDS_DISABLED" envDefault:"You cannot use commands while in a battle room!"`
}

// Room returns the templates the room manager renders.
func (m Messages) Room() room.Messages {
	return room.Messages{
		Entered:       m.Entered,
		BattleBegun:   m.BattleBegun,
		PlayerWins:    m.PlayerWins,
		NoWinner:      m.NoWinner,
		RoomReopening: m.RoomReopening,
	}
}

// InitConfig loads variables from the given .env files (".env" when none are
// named) without overriding the process environment. Missing files are not an
// error.
func InitConfig(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseConfig reads the environment and then lets flags override it.
func ParseConfig(flags *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flags.DurationVar(&cfg.Cooldown, "cooldown", cfg.Cooldown, "Delay before a finished room reopens")
	flags.StringVar(&cfg.SealedMaterial, "sealed-material", cfg.SealedMaterial, "Block placed in a sealed gate")
	flags.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP HTTP endpoint; tracing is off when empty")
	flags.Float64Var(&cfg.OTelSample, "otel-sample", cfg.OTelSample, "Share of traces kept, 0 to 1")
	flags.TextVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (DEBUG, INFO, WARN, ERROR)")
	flags.Func("worlds", "Comma separated world names (default "+strings.Join(cfg.Worlds, ",")+")", func(s string) error {
		cfg.Worlds = splitList(s)
		return nil
	})
	if args == nil {
		args = []string{}
	}
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	if len(cfg.Worlds) == 0 {
		return Config{}, errors.New("at least one world is required")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
