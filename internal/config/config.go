// Package config loads the livecache command configuration from the
// environment and an optional .env file.
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/huykn/livecache/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the command.
type Config struct {
	// Redis holds the connection used for both transport and store.
	Redis RedisConfig `mapstructure:"redis"`
	// Cache holds live cache settings.
	Cache CacheConfig `mapstructure:"cache"`
	// Server holds the HTTP server settings of the serve command.
	Server ServerConfig `mapstructure:"server"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" default:"localhost:6379"`
	Password string `mapstructure:"password" default:""`
	DB       int    `mapstructure:"db" default:"0"`
	// Prefix is prepended to every store key.
	Prefix string `mapstructure:"prefix" default:"livecache:"`
}

// CacheConfig holds live cache settings.
type CacheConfig struct {
	// PodID identifies this process. Empty means a random UUID.
	PodID string `mapstructure:"pod_id" default:""`
	// Channel is the default Pub/Sub channel.
	Channel string `mapstructure:"channel" default:"livecache:events"`
	// Format is the message serialization format: json, msgpack or cbor.
	Format string `mapstructure:"format" default:"json"`
	// IgnoreOwn drops messages this process published.
	IgnoreOwn bool `mapstructure:"ignore_own" default:"false"`
	// Timeout bounds hydration and group calls.
	Timeout time.Duration `mapstructure:"timeout" default:"5s"`
	// Debug enables debug logging inside the cache.
	Debug bool `mapstructure:"debug" default:"false"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
}

// LoadConfig loads configuration from environment variables and the .env
// file in path, if any. CACHE_POD_ID sets cache.pod_id, and so on.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." || path == "" {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist
	_ = godotenv.Load(envPath)

	v := viper.New()
	bindValues(v, Config{}, "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// bindValues registers every mapstructure key with its default tag so that
// AutomaticEnv can resolve it.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
