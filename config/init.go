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
)

// Конечная структура конфигурации приложения.
type Config struct {
	Server struct {
		Address  string `mapstructure:"address"`   // 0.0.0.0
		HTTPPort string `mapstructure:"http_port"` // 8080
	} `mapstructure:"server"`

	App struct {
		Timezone string `mapstructure:"timezone"` // календарь для "сегодня" (AMC, номера заявок)
	} `mapstructure:"app"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`

	Storage struct {
		Bucket        string `mapstructure:"bucket"`          // пусто: вложения отключены
		Region        string `mapstructure:"region"`          // eu-central-1
		Endpoint      string `mapstructure:"endpoint"`        // S3-совместимый endpoint (необязательно)
		PublicBaseURL string `mapstructure:"public_base_url"` // префикс публичной ссылки на объект
		PathStyle     bool   `mapstructure:"path_style"`
	} `mapstructure:"storage"`

	Listing struct {
		DefaultPageSize int `mapstructure:"default_page_size"`
		MaxPageSize     int `mapstructure:"max_page_size"`
		ExportLimit     int `mapstructure:"export_limit"`
	} `mapstructure:"listing"`

	Logging struct {
		Level  string `mapstructure:"level"`  // trace|debug|info|warning|error|fatal
		Format string `mapstructure:"format"` // text|json
		File   string `mapstructure:"file"`   // путь/префикс файла, пусто — только stdout
	} `mapstructure:"logs"`

	Database struct {
		Driver      string `mapstructure:"driver"` // "postgres" | "mysql" | "sqlite"
		DSN         string `mapstructure:"dsn"`
		AutoMigrate bool   `mapstructure:"auto_migrate"`
	} `mapstructure:"database"`
}

// Location возвращает часовой пояс бизнеса; при ошибке: UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load читает конфиг из .env/env/файла с дефолтами.
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			viper.AddConfigPath(filepath.Join(xdg, "amcdesk"))
		}
		viper.AddConfigPath("/etc/amcdesk")
	}

	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults() {
	viper.SetDefault("server.address", "0.0.0.0")
	viper.SetDefault("server.http_port", "8080")
	viper.SetDefault("app.timezone", "UTC")

	viper.SetDefault("auth.jwt_secret", "CHANGE_ME")
	viper.SetDefault("auth.token_ttl", "12h")

	viper.SetDefault("storage.bucket", "")
	viper.SetDefault("storage.region", "eu-central-1")
	viper.SetDefault("storage.endpoint", "")
	viper.SetDefault("storage.public_base_url", "")
	viper.SetDefault("storage.path_style", false)

	viper.SetDefault("listing.default_page_size", 20)
	viper.SetDefault("listing.max_page_size", 100)
	viper.SetDefault("listing.export_limit", 500)

	viper.SetDefault("logs.level", "info")
	viper.SetDefault("logs.format", "text")
	viper.SetDefault("logs.file", "")

	// по умолчанию: локальный sqlite-файл, удобно для разработки
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "amcdesk.db")
	viper.SetDefault("database.auto_migrate", true)
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" || c.Auth.JWTSecret == "CHANGE_ME" {
		return errors.New("auth.jwt_secret must be set (not empty and not CHANGE_ME)")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if strings.TrimSpace(c.Server.Address) == "" {
		return errors.New("server.address must not be empty")
	}
	if strings.TrimSpace(c.Server.HTTPPort) == "" {
		return errors.New("server.http_port must not be empty")
	}
	if strings.TrimSpace(c.Database.Driver) == "" {
		return errors.New("database.driver must not be empty")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	if c.Listing.DefaultPageSize <= 0 || c.Listing.MaxPageSize < c.Listing.DefaultPageSize {
		return errors.New("listing.default_page_size must be positive and not exceed listing.max_page_size")
	}
	if c.Listing.ExportLimit <= 0 {
		return errors.New("listing.export_limit must be positive")
	}
	return nil
}
