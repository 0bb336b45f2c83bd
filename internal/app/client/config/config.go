package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appconfig "notekeeper/internal/config"
)

const (
	defaultServerAddress  = "localhost:8080"
	defaultListenAddress  = "127.0.0.1:7420"
	defaultLogLevel       = "info"
	defaultDataDir        = "." + appconfig.AppName
	defaultSyncInterval   = 5 * time.Minute
	defaultMaxRetries     = 5
	defaultRequestTimeout = 15 * time.Second
	defaultDebounce       = 2 * time.Second
	defaultProbeInterval  = 30 * time.Second
	defaultConflictTTL    = 24 * time.Hour
	defaultPresenceTries  = 5
	defaultPresenceBase   = 500 * time.Millisecond
	defaultPresenceMax    = 30 * time.Second
	defaultPresenceStable = 10 * time.Second
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	APIToken      string `mapstructure:"api_token"`
	DataDir       string `mapstructure:"data_dir"`
	DBPath        string `mapstructure:"db_path"`
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	ListenAddress string `mapstructure:"listen_address"`
	Author        string `mapstructure:"author"`

	Sync     Sync
	Presence Presence
}

type Sync struct {
	Auto           bool          `mapstructure:"sync_auto"`
	Interval       time.Duration `mapstructure:"sync_interval"`
	MaxRetries     int           `mapstructure:"sync_max_retries"`
	RequestTimeout time.Duration `mapstructure:"sync_request_timeout"`
	Debounce       time.Duration `mapstructure:"sync_debounce"`
	ProbeInterval  time.Duration `mapstructure:"sync_probe_interval"`
	ConflictTTL    time.Duration `mapstructure:"sync_conflict_ttl"`
}

type Presence struct {
	URL         string        `mapstructure:"presence_url"`
	MaxAttempts int           `mapstructure:"presence_max_attempts"`
	BaseBackoff time.Duration `mapstructure:"presence_base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"presence_max_backoff"`
	StableAfter time.Duration `mapstructure:"presence_stable_after"`
}

// MustLoad is Load for main: a broken configuration is fatal.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config error: %v", err))
	}
	return cfg
}

// Load reads .env (when present), the environment and any config file already
// registered with viper, applies defaults and validates the result.
func Load() (*Config, error) {
	loadDotEnv()

	viper.AutomaticEnv()
	setDefaults()

	dataDir := viper.GetString("DATA_DIR")
	if dataDir == defaultDataDir {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataDir = filepath.Join(home, dataDir)
	}
	dbPath := viper.GetString("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "cache.db")
	}
	author := viper.GetString("AUTHOR")
	if author == "" {
		author = os.Getenv("USER")
	}

	cfg := &Config{
		Env:           viper.GetString("APP_ENV"),
		ServerAddress: viper.GetString("SERVER_ADDRESS"),
		EnableTLS:     viper.GetBool("ENABLE_TLS"),
		APIToken:      viper.GetString("API_TOKEN"),
		DataDir:       dataDir,
		DBPath:        dbPath,
		LogLevel:      viper.GetString("LOG_LEVEL"),
		LogFile:       viper.GetString("LOG_FILE"),
		ListenAddress: viper.GetString("LISTEN_ADDRESS"),
		Author:        author,
		Sync: Sync{
			Auto:           viper.GetBool("SYNC_AUTO"),
			Interval:       viper.GetDuration("SYNC_INTERVAL"),
			MaxRetries:     viper.GetInt("SYNC_MAX_RETRIES"),
			RequestTimeout: viper.GetDuration("SYNC_REQUEST_TIMEOUT"),
			Debounce:       viper.GetDuration("SYNC_DEBOUNCE"),
			ProbeInterval:  viper.GetDuration("SYNC_PROBE_INTERVAL"),
			ConflictTTL:    viper.GetDuration("SYNC_CONFLICT_TTL"),
		},
		Presence: Presence{
			URL:         viper.GetString("PRESENCE_URL"),
			MaxAttempts: viper.GetInt("PRESENCE_MAX_ATTEMPTS"),
			BaseBackoff: viper.GetDuration("PRESENCE_BASE_BACKOFF"),
			MaxBackoff:  viper.GetDuration("PRESENCE_MAX_BACKOFF"),
			StableAfter: viper.GetDuration("PRESENCE_STABLE_AFTER"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv() {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", envPath, err)
		}
	}
}

func setDefaults() {
	viper.SetDefault("APP_ENV", appconfig.EnvLocal)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("ENABLE_TLS", false)
	viper.SetDefault("DATA_DIR", defaultDataDir)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("LISTEN_ADDRESS", defaultListenAddress)
	viper.SetDefault("SYNC_AUTO", true)
	viper.SetDefault("SYNC_INTERVAL", defaultSyncInterval)
	viper.SetDefault("SYNC_MAX_RETRIES", defaultMaxRetries)
	viper.SetDefault("SYNC_REQUEST_TIMEOUT", defaultRequestTimeout)
	viper.SetDefault("SYNC_DEBOUNCE", defaultDebounce)
	viper.SetDefault("SYNC_PROBE_INTERVAL", defaultProbeInterval)
	viper.SetDefault("SYNC_CONFLICT_TTL", defaultConflictTTL)
	viper.SetDefault("PRESENCE_MAX_ATTEMPTS", defaultPresenceTries)
	viper.SetDefault("PRESENCE_BASE_BACKOFF", defaultPresenceBase)
	viper.SetDefault("PRESENCE_MAX_BACKOFF", defaultPresenceMax)
	viper.SetDefault("PRESENCE_STABLE_AFTER", defaultPresenceStable)
}

func (c *Config) validate() error {
	var errs []error
	if err := appconfig.ValidateEnv(c.Env); err != nil {
		errs = append(errs, err)
	}
	if c.ServerAddress == "" {
		errs = append(errs, errors.New("server_address must not be empty"))
	}
	if c.ListenAddress == "" {
		errs = append(errs, errors.New("listen_address must not be empty"))
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("sync_interval must be positive"))
	}
	if c.Sync.MaxRetries < 1 {
		errs = append(errs, errors.New("sync_max_retries must be at least 1"))
	}
	if c.Sync.RequestTimeout <= 0 {
		errs = append(errs, errors.New("sync_request_timeout must be positive"))
	}
	if c.Sync.Debounce < 0 {
		errs = append(errs, errors.New("sync_debounce must not be negative"))
	}
	if c.Presence.MaxAttempts < 1 {
		errs = append(errs, errors.New("presence_max_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

// ServerURL is the base URL of the sync server.
func (c *Config) ServerURL() string {
	if strings.Contains(c.ServerAddress, "://") {
		return strings.TrimRight(c.ServerAddress, "/")
	}
	scheme := "http"
	if c.EnableTLS {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimRight(c.ServerAddress, "/")
}

// PresenceURL is PRESENCE_URL or the collaboration endpoint of the sync server.
func (c *Config) PresenceURL() string {
	if c.Presence.URL != "" {
		return c.Presence.URL
	}
	base := c.ServerURL()
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/api/v1/collab"
}

func (c *Config) IsProd() bool {
	return c.Env == appconfig.EnvProd
}

func (c *Config) IsDev() bool {
	return c.Env == appconfig.EnvDev
}

func (c *Config) IsLocal() bool {
	return c.Env == appconfig.EnvLocal || c.Env == ""
}
