package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Anandtech09/reception-prime-queue/internal/model"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Clinic    ClinicConfig    `mapstructure:"clinic"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type SyncConfig struct {
	StorageKey   string        `mapstructure:"storage_key"`
	Channel      string        `mapstructure:"channel"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type ClinicConfig struct {
	TokenPadding  int            `mapstructure:"token_padding"`
	SweepInterval time.Duration  `mapstructure:"sweep_interval"`
	Doctors       []DoctorConfig `mapstructure:"doctors"`
}

type DoctorConfig struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	CabinNumber string `mapstructure:"cabin_number"`
	ServiceType string `mapstructure:"service_type"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file is fine, defaults carry a full working setup.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdown_timeout", 5*time.Second)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.pretty", true)
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)
	viper.SetDefault("sync.storage_key", "clinic_state")
	viper.SetDefault("sync.channel", "clinic_sync")
	viper.SetDefault("sync.poll_interval", 500*time.Millisecond)
	viper.SetDefault("clinic.token_padding", 3)
	viper.SetDefault("clinic.sweep_interval", time.Second)
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 50.0)
	viper.SetDefault("rate_limit.burst", 100)
	viper.SetDefault("security.allowed_origins", []string{"*"})
}

// Roster returns the configured doctors, or the stock five-doctor roster
// when none are configured. Every doctor starts active.
func (c *ClinicConfig) Roster() []model.Doctor {
	if len(c.Doctors) == 0 {
		return defaultRoster()
	}
	doctors := make([]model.Doctor, 0, len(c.Doctors))
	for _, d := range c.Doctors {
		doctors = append(doctors, model.Doctor{
			ID:          d.ID,
			Name:        d.Name,
			CabinNumber: d.CabinNumber,
			ServiceType: model.ServiceType(d.ServiceType),
			Status:      model.DoctorStatusActive,
		})
	}
	return doctors
}

func defaultRoster() []model.Doctor {
	return []model.Doctor{
		{ID: "gp1", Name: "Dr. Sarah Johnson", CabinNumber: "101", ServiceType: model.ServiceTypeGP, Status: model.DoctorStatusActive},
		{ID: "gp2", Name: "Dr. Michael Chen", CabinNumber: "102", ServiceType: model.ServiceTypeGP, Status: model.DoctorStatusActive},
		{ID: "gp3", Name: "Dr. Emily Brown", CabinNumber: "103", ServiceType: model.ServiceTypeGP, Status: model.DoctorStatusActive},
		{ID: "dental1", Name: "Dr. James Wilson", CabinNumber: "201", ServiceType: model.ServiceTypeDental, Status: model.DoctorStatusActive},
		{ID: "dental2", Name: "Dr. Lisa Anderson", CabinNumber: "202", ServiceType: model.ServiceTypeDental, Status: model.DoctorStatusActive},
	}
}
