package mysql

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the MySQL connection and pool settings.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	// LogLevel is the gorm logger level: silent, error, warn or info.
	LogLevel string `yaml:"log_level"`

	// ConnectRetries bounds the attempts made by NewClient.
	ConnectRetries int           `yaml:"connect_retries"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
}

// DefaultConfig returns local development defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            3306,
		User:            "spendwise",
		DBName:          "spendwise",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		LogLevel:        "error",
		ConnectRetries:  10,
		RetryInterval:   2 * time.Second,
	}
}

// DSN builds the driver connection string. Times are read and written in
// UTC, and UPDATE reports matched rather than changed rows so that a
// zero-delta increment still counts as a hit.
func (c Config) DSN() string {
	params := url.Values{}
	params.Set("charset", "utf8mb4")
	params.Set("parseTime", "True")
	params.Set("loc", "UTC")
	params.Set("clientFoundRows", "true")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
		params.Encode(),
	)
}

func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("mysql host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("mysql port must be between 1 and 65535")
	}
	if c.User == "" {
		return fmt.Errorf("mysql user is required")
	}
	if c.DBName == "" {
		return fmt.Errorf("mysql database name is required")
	}
	return nil
}
