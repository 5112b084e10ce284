package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	MySQL      MySQLConfig      `mapstructure:"mysql"`
	Leader     LeaderConfig     `mapstructure:"leader"`
	Instance   InstanceConfig   `mapstructure:"instance"`
	Log        LogConfig        `mapstructure:"log"`
	Settlement SettlementConfig `mapstructure:"settlement"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	Key string        `mapstructure:"key"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SettlementConfig drives the closing and payment passes.
type SettlementConfig struct {
	CloseAfterDays      int           `mapstructure:"close_after_days"`
	CloseSchedule       string        `mapstructure:"close_schedule"`
	PaymentSchedule     string        `mapstructure:"payment_schedule"`
	Timezone            string        `mapstructure:"timezone"`
	NotificationChannel string        `mapstructure:"notification_channel"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
}

var envBindings = map[string]string{
	"server.port":                     "SERVER_PORT",
	"server.host":                     "SERVER_HOST",
	"redis.address":                   "REDIS_ADDRESS",
	"redis.password":                  "REDIS_PASSWORD",
	"redis.db":                        "REDIS_DB",
	"mysql.dsn":                       "MYSQL_DSN",
	"mysql.max_open_conns":            "MYSQL_MAX_OPEN_CONNS",
	"mysql.max_idle_conns":            "MYSQL_MAX_IDLE_CONNS",
	"mysql.conn_max_lifetime":         "MYSQL_CONN_MAX_LIFETIME",
	"leader.ttl":                      "LEADER_TTL",
	"leader.key":                      "LEADER_KEY",
	"instance.id":                     "INSTANCE_ID",
	"log.level":                       "LOG_LEVEL",
	"settlement.close_after_days":     "SETTLEMENT_CLOSE_AFTER_DAYS",
	"settlement.close_schedule":       "SETTLEMENT_CLOSE_SCHEDULE",
	"settlement.payment_schedule":     "SETTLEMENT_PAYMENT_SCHEDULE",
	"settlement.timezone":             "SETTLEMENT_TIMEZONE",
	"settlement.notification_channel": "SETTLEMENT_NOTIFICATION_CHANNEL",
	"settlement.run_timeout":          "SETTLEMENT_RUN_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mysql.dsn", "auction_user:auction_pass@tcp(localhost:3306)/auction_db?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 10)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("leader.ttl", 30*time.Second)
	v.SetDefault("leader.key", "settlement_leader")
	v.SetDefault("instance.id", "settlement-service-1")
	v.SetDefault("log.level", "info")
	v.SetDefault("settlement.close_after_days", 7)
	v.SetDefault("settlement.close_schedule", "@every 1h")
	v.SetDefault("settlement.payment_schedule", "0 0 6 * * *")
	v.SetDefault("settlement.timezone", "UTC")
	v.SetDefault("settlement.notification_channel", "auction_events")
	v.SetDefault("settlement.run_timeout", 5*time.Minute)
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Configuration file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/auction-settlement/")

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

func bindEnv(v *viper.Viper) error {
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Settlement.CloseAfterDays < 1 {
		return fmt.Errorf("settlement.close_after_days must be at least 1, got %d", c.Settlement.CloseAfterDays)
	}
	if c.Settlement.RunTimeout <= 0 {
		return fmt.Errorf("settlement.run_timeout must be positive, got %s", c.Settlement.RunTimeout)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the settlement timezone used for calendar dates.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Settlement.Timezone)
	if err != nil {
		return nil, fmt.Errorf("settlement.timezone %q: %w", c.Settlement.Timezone, err)
	}
	return loc, nil
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s:%d, Redis: %s, Instance: %s, CloseAfterDays: %d, Timezone: %s",
		c.Server.Host,
		c.Server.Port,
		c.Redis.Address,
		c.Instance.ID,
		c.Settlement.CloseAfterDays,
		c.Settlement.Timezone,
	)
}
