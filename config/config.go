package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Telegram
	BotToken string

	// Watch checking
	CheckIntervalMinutes int
	MaxConcurrent        int

	// Scraping
	RatePerSecond  float64
	RateBurst      int
	DelayProfile   string // "cautious", "normal", "aggressive"
	RespectRobots  bool
	EnableHeadless bool

	// Storage
	DataDir string

	// Health endpoint
	HTTPPort string
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CheckIntervalMinutes: 15,
		MaxConcurrent:        5,
		RatePerSecond:        2.0,
		RateBurst:            3,
		DelayProfile:         "normal",
		RespectRobots:        true,
		DataDir:              "data",
		HTTPPort:             "8080",
	}
}

// LoadFromEnv loads .env file (if present) then overrides config from
// environment variables.
func (c *Config) LoadFromEnv() {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.BotToken = v
	}
	if v := os.Getenv("CHECK_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CheckIntervalMinutes = n
		}
	}
	if v := os.Getenv("PRICEHOUND_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrent = n
		}
	}
	if v := os.Getenv("PRICEHOUND_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RatePerSecond = f
		}
	}
	if v := os.Getenv("PRICEHOUND_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
	if v := os.Getenv("PRICEHOUND_DELAY_PROFILE"); v != "" {
		c.DelayProfile = v
	}
	if v := os.Getenv("PRICEHOUND_RESPECT_ROBOTS"); v == "false" {
		c.RespectRobots = false
	}
	if v := os.Getenv("PRICEHOUND_HEADLESS"); v == "true" {
		c.EnableHeadless = true
	}
	if v := os.Getenv("PRICEHOUND_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPPort = v
	}
}

// Validate checks the settings every command depends on. The bot
// token is checked separately by commands that talk to Telegram.
func (c *Config) Validate() error {
	if c.CheckIntervalMinutes < 1 {
		return fmt.Errorf("check interval must be at least 1 minute, got %d", c.CheckIntervalMinutes)
	}
	return nil
}

// RequireBotToken returns an error when no Telegram credential is
// configured. A missing token is startup-fatal for the bot, never a
// runtime condition.
func (c *Config) RequireBotToken() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is missing; set it in the environment or .env")
	}
	return nil
}
