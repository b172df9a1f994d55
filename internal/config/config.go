package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"arcade-arena/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	ServerPort         string
	LogLevel           string
	BotsPerGame        int
	BotRatingMin       int
	BotRatingMax       int
	MatchSweepInterval time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		BotsPerGame:        getEnvInt("BOTS_PER_GAME", constants.BotsPerGame),
		BotRatingMin:       getEnvInt("BOT_RATING_MIN", constants.BotRatingMin),
		BotRatingMax:       getEnvInt("BOT_RATING_MAX", constants.BotRatingMax),
		MatchSweepInterval: getEnvDuration("MATCH_SWEEP_INTERVAL", constants.MatchSweepInterval),
	}

	if cfg.BotsPerGame < 0 {
		return nil, fmt.Errorf("BOTS_PER_GAME must not be negative")
	}
	if cfg.BotRatingMax < cfg.BotRatingMin {
		return nil, fmt.Errorf("BOT_RATING_MAX must be >= BOT_RATING_MIN")
	}

	logger.Info().
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("bots_per_game", cfg.BotsPerGame).
		Int("bot_rating_min", cfg.BotRatingMin).
		Int("bot_rating_max", cfg.BotRatingMax).
		Dur("match_sweep_interval", cfg.MatchSweepInterval).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
