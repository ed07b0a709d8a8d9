package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	DataStoreMongo  = "mongo"
	DataStoreMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,       default=3000"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	PagesDir  string `env:"PAGES_DIR,  default=./web"`
	LoginPath string `env:"LOGIN_PATH, default=/login.html"`

	// DataStore selects where users and settings live: "mongo" or "memory".
	// The memory store loses everything on restart.
	DataStore string `env:"DATA_STORE, default=mongo"`

	// BcryptCost is the work factor for new password hashes.
	BcryptCost int `env:"BCRYPT_COST, default=10"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Session SessionConfig
	Admin   AdminConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=telc_exam"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type SessionConfig struct {
	// Store selects the session backend: "memory" or "redis".
	Store                  string        `env:"SESSION_STORE,                     default=memory"`
	CookieName             string        `env:"SESSION_COOKIE_NAME,               default=exam_session"`
	CookieSecure           bool          `env:"SESSION_COOKIE_SECURE,             default=false"`
	SweepInterval          time.Duration `env:"SESSION_SWEEP_INTERVAL,            default=1m"`
	RevokeOnPasswordChange bool          `env:"SESSION_REVOKE_ON_PASSWORD_CHANGE, default=true"`
}

// AdminConfig seeds the first administrator on an empty database.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME,  default=admin"`
	Password string `env:"ADMIN_PASSWORD,  default=admin123"`
	Email    string `env:"ADMIN_EMAIL,     default=admin@telc-exam.com"`
	FullName string `env:"ADMIN_FULL_NAME, default=Administrator"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return &cfg
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DataStore {
	case DataStoreMongo, DataStoreMemory:
	default:
		return fmt.Errorf("DATA_STORE must be %q or %q, got %q", DataStoreMongo, DataStoreMemory, c.DataStore)
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreMemory, SessionStoreRedis, c.Session.Store)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	return nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
