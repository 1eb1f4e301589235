package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const RepositoryPostgres = "postgres"
const RepositoryInMemory = "inmemory"

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Backend    BackendConfig    `mapstructure:"backend" yaml:"backend"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`
	Auth       AuthConfig       `mapstructure:"auth" yaml:"auth"`
	Trash      TrashConfig      `mapstructure:"trash" yaml:"trash"`
	App        AppConfig        `mapstructure:"app" yaml:"app"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" yaml:"port"`
	Host            string        `mapstructure:"host" yaml:"host"`
	RateLimit       int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// BackendConfig - два параметра подключения; без любого из них включается деградированный режим
type BackendConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

type DatabaseConfig struct {
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections"`
	MinConnections int           `mapstructure:"min_connections" yaml:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	Migrate        bool          `mapstructure:"migrate" yaml:"migrate"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development" yaml:"development"`
}

type RepositoryConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // "postgres" или "inmemory"
}

type AuthConfig struct {
	Secret     string        `mapstructure:"secret" yaml:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl" yaml:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl" yaml:"refresh_ttl"`
	ResetTTL   time.Duration `mapstructure:"reset_ttl" yaml:"reset_ttl"`
}

type TrashConfig struct {
	Retention time.Duration `mapstructure:"retention" yaml:"retention"`
	Interval  time.Duration `mapstructure:"interval" yaml:"interval"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size"`
}

type AppConfig struct {
	Timezone       string `mapstructure:"timezone" yaml:"timezone"`
	Language       string `mapstructure:"language" yaml:"language"`
	RealtimeBuffer int    `mapstructure:"realtime_buffer" yaml:"realtime_buffer"`
	FocusMinutes   int    `mapstructure:"focus_minutes" yaml:"focus_minutes"`
	LocalesDir     string `mapstructure:"locales_dir" yaml:"locales_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "")
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("backend.url", "")
	v.SetDefault("backend.api_key", "")

	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("logging.development", false)
	v.SetDefault("repository.type", RepositoryInMemory)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.access_ttl", time.Hour)
	v.SetDefault("auth.refresh_ttl", 30*24*time.Hour)
	v.SetDefault("auth.reset_ttl", 30*time.Minute)

	v.SetDefault("trash.retention", 30*24*time.Hour)
	v.SetDefault("trash.interval", time.Hour)
	v.SetDefault("trash.batch_size", 100)

	v.SetDefault("app.timezone", "Local")
	v.SetDefault("app.language", "en")
	v.SetDefault("app.realtime_buffer", 16)
	v.SetDefault("app.focus_minutes", 25)
	v.SetDefault("app.locales_dir", "")
}

// Load читает config.yml (или указанный файл), переменные TASKFLOW_* и .env.
// Отсутствующий файл не ошибка: используются значения по умолчанию.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TASKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ошибка парсинга конфига: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("разбор конфига: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositoryPostgres, RepositoryInMemory:
	default:
		return fmt.Errorf("неизвестный тип хранилища %q", c.Repository.Type)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Trash.Retention < 0 {
		return fmt.Errorf("trash.retention не может быть отрицательным")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Degraded: postgres выбран, но параметры подключения заданы не полностью
func (c *Config) Degraded() bool {
	return c.Repository.Type == RepositoryPostgres &&
		(strings.TrimSpace(c.Backend.URL) == "" || strings.TrimSpace(c.Backend.APIKey) == "")
}

func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" || c.App.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("неизвестный часовой пояс %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

func (c *Config) FocusLength() time.Duration {
	if c.App.FocusMinutes <= 0 {
		return 25 * time.Minute
	}
	return time.Duration(c.App.FocusMinutes) * time.Minute
}

// Dump - YAML без секретов
func (c *Config) Dump() ([]byte, error) {
	masked := *c
	masked.Backend.APIKey = mask(c.Backend.APIKey)
	masked.Auth.Secret = mask(c.Auth.Secret)
	masked.Backend.URL = maskURL(c.Backend.URL)
	return yaml.Marshal(masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func maskURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	return raw[:scheme+3] + "***" + raw[at:]
}
