package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/logger"
)

// Backend names accepted in store.backend
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Journal  JournalConfig  `yaml:"journal"`
}

type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
	Mode     string `yaml:"mode"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig signs session tokens. ExpireHours 0 issues tokens that never
// expire; anonymous tokens never expire whatever it says.
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type LogConfig struct {
	Dir        string `yaml:"dir"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// JournalConfig is the client side of the journal
type JournalConfig struct {
	RemoteAddr      string            `yaml:"remote_addr"`
	Token           string            `yaml:"token"`
	StartingCapital string            `yaml:"starting_capital"`
	Checklist       []ChecklistConfig `yaml:"checklist"`
}

type ChecklistConfig struct {
	ID       int    `yaml:"id"`
	Text     string `yaml:"text"`
	Category string `yaml:"category"`
}

// Default returns a configuration usable for local development
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			GRPCAddr: ":8080",
			HTTPAddr: ":8081",
			Mode:     "release",
		},
		Store: StoreConfig{Backend: BackendMemory},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			DBName:   "tradejournal",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		JWT: JWTConfig{
			Secret:      "dev-secret",
			ExpireHours: 24 * 30,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Journal: JournalConfig{
			RemoteAddr:      "localhost:8080",
			StartingCapital: strconv.Itoa(domain.DefaultStartingCapital),
		},
	}
	for _, item := range domain.DefaultChecklist() {
		cfg.Journal.Checklist = append(cfg.Journal.Checklist, ChecklistConfig{
			ID:       item.ID,
			Text:     item.Text,
			Category: string(item.Category),
		})
	}
	return cfg
}

// Load builds the configuration from defaults, an optional YAML file at path,
// a .env file in the working directory and the process environment, in that
// order of increasing precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	// Server
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		c.Server.GRPCAddr = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("SERVER_MODE"); v != "" {
		c.Server.Mode = v
	}

	// Store
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}

	// Database
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.DBName = v
	}

	// Redis
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	// JWT
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("JWT_EXPIRE_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.JWT.ExpireHours = hours
		}
	}

	// Log
	if v := os.Getenv("LOG_DIR"); v != "" {
		c.Log.Dir = v
	}

	// Journal
	if v := os.Getenv("JOURNAL_REMOTE_ADDR"); v != "" {
		c.Journal.RemoteAddr = v
	}
	if v := os.Getenv("JOURNAL_TOKEN"); v != "" {
		c.Journal.Token = v
	}
	if v := os.Getenv("JOURNAL_STARTING_CAPITAL"); v != "" {
		c.Journal.StartingCapital = v
	}
}

// Validate checks the values the binaries cannot start without
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("store.backend must be memory, postgres or redis, got %q", c.Store.Backend)
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}

	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.JWT.ExpireHours < 0 {
		return errors.New("jwt.expire_hours must not be negative")
	}

	if _, err := c.Journal.Capital(); err != nil {
		return err
	}
	if _, err := c.Journal.Items(); err != nil {
		return err
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr returns the redis host:port
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// TTL returns the lifetime of issued session tokens, 0 for no expiry
func (c *JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpireHours) * time.Hour
}

// Options converts the log section for logger.Setup
func (c *LogConfig) Options() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// Capital parses the default starting capital
func (c *JournalConfig) Capital() (decimal.Decimal, error) {
	capital, err := decimal.NewFromString(c.StartingCapital)
	if err != nil {
		return decimal.Zero, fmt.Errorf("journal.starting_capital %q is not a number: %w", c.StartingCapital, err)
	}
	if capital.IsNegative() {
		return decimal.Zero, fmt.Errorf("journal.starting_capital must not be negative")
	}
	return capital, nil
}

// Items converts the checklist definition, all items unchecked
func (c *JournalConfig) Items() ([]domain.ChecklistItem, error) {
	items := make([]domain.ChecklistItem, 0, len(c.Checklist))
	for _, item := range c.Checklist {
		items = append(items, domain.ChecklistItem{
			ID:       item.ID,
			Text:     item.Text,
			Category: domain.Category(item.Category),
		})
	}
	if err := domain.ValidateChecklist(items); err != nil {
		return nil, fmt.Errorf("journal.checklist: %w", err)
	}
	return items, nil
}
