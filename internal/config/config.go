package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	LogLevel       zapcore.Level
	LogDevelopment bool
	MaxImages      int
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	OriginPatterns []string
}

// Load reads an optional .env file and then the environment. Env vars use the
// prefix CONTEST_, e.g. CONTEST_ADDR or CONTEST_MAX_IMAGES.
func Load(envFiles ...string) (Config, error) {
	// a missing .env is fine
	_ = godotenv.Load(envFiles...)

	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)
	v.SetDefault("max_images", 256)
	v.SetDefault("ws_read_timeout", 5*time.Minute)
	v.SetDefault("ws_write_timeout", 3*time.Second)
	v.SetDefault("origin_patterns", "")

	v.SetEnvPrefix("CONTEST")
	v.AutomaticEnv()

	level, err := zapcore.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return Config{}, fmt.Errorf("log_level: %w", err)
	}

	c := Config{
		Addr:           v.GetString("addr"),
		LogLevel:       level,
		LogDevelopment: v.GetBool("log_development"),
		MaxImages:      v.GetInt("max_images"),
		WSReadTimeout:  v.GetDuration("ws_read_timeout"),
		WSWriteTimeout: v.GetDuration("ws_write_timeout"),
		OriginPatterns: splitList(v.GetString("origin_patterns")),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	if c.MaxImages < 2 {
		errs = append(errs, fmt.Errorf("max_images must be at least 2, got %d", c.MaxImages))
	}
	if c.WSReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ws_read_timeout must be positive, got %v", c.WSReadTimeout))
	}
	if c.WSWriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ws_write_timeout must be positive, got %v", c.WSWriteTimeout))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
