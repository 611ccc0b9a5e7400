package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Clinic     ClinicConfig     `yaml:"clinic"`
	Mail       MailConfig       `yaml:"mail"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Admin      AdminConfig      `yaml:"admin"`
	Session    SessionConfig    `yaml:"session"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port              int `yaml:"port"`
	ReadHeaderTimeout int `yaml:"read_header_timeout"`
	WriteTimeout      int `yaml:"write_timeout"`
	ShutdownTimeout   int `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type ClinicConfig struct {
	Timezone      string `yaml:"timezone"`
	ClosedWeekday string `yaml:"closed_weekday"`
	OpenHour      int    `yaml:"open_hour"`
	CloseHour     int    `yaml:"close_hour"`
	SlotMinutes   int    `yaml:"slot_minutes"`
}

type MailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	StaffEmail     string `yaml:"staff_email"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	StaffChatID int64  `yaml:"staff_chat_id"`
}

type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

type SessionConfig struct {
	HashKey  string `yaml:"hash_key"`
	BlockKey string `yaml:"block_key"`
}

type RateLimitConfig struct {
	SubmissionsPerMinute int     `yaml:"submissions_per_minute"`
	APIRPS               float64 `yaml:"api_rps"`
	APIBurst             int     `yaml:"api_burst"`
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	BookingsSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// Load reads the YAML config, expanding ${VAR} references from the
// environment. A .env file is honored when present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expanded, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Clinic.OpenHour >= c.Clinic.CloseHour {
		return fmt.Errorf("clinic open_hour %d must be before close_hour %d", c.Clinic.OpenHour, c.Clinic.CloseHour)
	}
	if c.Admin.Username != "" && c.Admin.PasswordHash == "" {
		return errors.New("admin password_hash is required when admin username is set")
	}
	if c.Mail.SendGridAPIKey != "" && c.Mail.StaffEmail == "" {
		return errors.New("mail staff_email is required when sendgrid is configured")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "clinicbook"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}
	if c.Clinic.Timezone == "" {
		c.Clinic.Timezone = "Africa/Cairo"
	}
	if c.Clinic.ClosedWeekday == "" {
		c.Clinic.ClosedWeekday = "Friday"
	}
	if c.Clinic.OpenHour == 0 && c.Clinic.CloseHour == 0 {
		c.Clinic.OpenHour = 15
		c.Clinic.CloseHour = 22
	}
	if c.Clinic.SlotMinutes == 0 {
		c.Clinic.SlotMinutes = 30
	}
	if c.Mail.FromName == "" {
		c.Mail.FromName = "Clinic Bookings"
	}
	if c.RateLimit.SubmissionsPerMinute == 0 {
		c.RateLimit.SubmissionsPerMinute = 5
	}
	if c.RateLimit.APIRPS == 0 {
		c.RateLimit.APIRPS = 10
	}
	if c.RateLimit.APIBurst == 0 {
		c.RateLimit.APIBurst = 20
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
