package main

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config is read from the environment, after an optional .env file.
type Config struct {
	Channel  string `env:"XIM_CHANNEL,default=memory" validate:"oneof=memory redis-streams"`
	Username string `env:"XIM_USERNAME"`

	RedisAddr     string `env:"XIM_REDIS_ADDR" validate:"required_if=Channel redis-streams"`
	RedisPassword string `env:"XIM_REDIS_PASSWORD"`
	RedisDB       int    `env:"XIM_REDIS_DB,default=0" validate:"gte=0"`

	SendTimeout time.Duration `env:"XIM_SEND_TIMEOUT,default=10s" validate:"gte=0"`
	RejectEmpty bool          `env:"XIM_REJECT_EMPTY,default=false"`

	HealthAddr string `env:"XIM_HEALTH_ADDR"`
	Debug      bool   `env:"XIM_DEBUG,default=false"`
	NoColor    bool   `env:"XIM_NO_COLOR,default=false"`
}

// LoadConfig loads .env (if any), unmarshals XIM_* variables and validates them.
func LoadConfig(envFiles ...string) (Config, error) {
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
