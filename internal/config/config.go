package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the chat service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	DatabaseURL     string
	RedisURL        string
	NATSURL         string
	ChannelBase     string
	JWTSecret       string
	StoreTimeout    time.Duration
	SSEKeepAlive    time.Duration
	PaymentEndpoint string
	PaymentAPIKey   string
	OpenAIAPIKey    string
	OpenAIModel     string
	AllowedOrigins  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CHAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Chat")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("channel.base", "gema:chat-service")
	v.SetDefault("store.timeout", "5s")
	v.SetDefault("sse.keepalive", "30s")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("cors.origins", "*")

	storeTimeout, err := time.ParseDuration(v.GetString("store.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid store timeout: %w", err)
	}

	keepAlive, err := time.ParseDuration(v.GetString("sse.keepalive"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid sse keepalive: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		ChannelBase:     v.GetString("channel.base"),
		JWTSecret:       v.GetString("jwt.secret"),
		StoreTimeout:    storeTimeout,
		SSEKeepAlive:    keepAlive,
		PaymentEndpoint: v.GetString("payment.endpoint"),
		PaymentAPIKey:   v.GetString("payment.api_key"),
		OpenAIAPIKey:    v.GetString("openai.api_key"),
		OpenAIModel:     v.GetString("openai.model"),
		AllowedOrigins:  v.GetString("cors.origins"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}

	return cfg, nil
}
