package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Email     EmailConfig     `mapstructure:"email"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Billing   BillingConfig   `mapstructure:"billing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	MonitorPort  string        `mapstructure:"monitor_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig holds the durable file store configuration
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// RelayConfig holds the SMTP relay connection configuration
type RelayConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	HeloName string        `mapstructure:"helo_name"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// EmailConfig holds the addressing used for outgoing email
type EmailConfig struct {
	FromAddress     string `mapstructure:"from_address"`
	BounceAddress   string `mapstructure:"bounce_address"`
	CatchAllAddress string `mapstructure:"catch_all_address"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// BillingConfig holds the billing provider configuration
type BillingConfig struct {
	APIBaseURL string `mapstructure:"api_base_url"`
	APIKey     string `mapstructure:"api_key"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.monitor_port", "8081")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("storage.data_dir", "./data")

	viper.SetDefault("relay.host", "localhost")
	viper.SetDefault("relay.port", 25)
	viper.SetDefault("relay.helo_name", "localhost")
	viper.SetDefault("relay.timeout", "30s")

	viper.SetDefault("scheduler.interval_minutes", 60)

	viper.SetDefault("billing.api_base_url", "https://api.stripe.com")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.monitor_port", "SERVER_MONITOR_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Storage
	viper.BindEnv("storage.data_dir", "STORAGE_DATA_DIR")

	// Relay
	viper.BindEnv("relay.host", "RELAY_HOST")
	viper.BindEnv("relay.port", "RELAY_PORT")
	viper.BindEnv("relay.helo_name", "RELAY_HELO_NAME")
	viper.BindEnv("relay.timeout", "RELAY_TIMEOUT")

	// Email
	viper.BindEnv("email.from_address", "EMAIL_FROM_ADDRESS")
	viper.BindEnv("email.bounce_address", "EMAIL_BOUNCE_ADDRESS")
	viper.BindEnv("email.catch_all_address", "EMAIL_CATCH_ALL_ADDRESS")

	// Scheduler
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")

	// Billing
	viper.BindEnv("billing.api_base_url", "BILLING_API_BASE_URL")
	viper.BindEnv("billing.api_key", "BILLING_API_KEY")
}

// RelayAddr returns the relay's host:port
func (c *RelayConfig) RelayAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data dir is required")
	}

	if c.Relay.Host == "" || c.Relay.Port == 0 {
		return fmt.Errorf("relay host and port are required")
	}

	if c.Email.FromAddress == "" || c.Email.BounceAddress == "" || c.Email.CatchAllAddress == "" {
		return fmt.Errorf("email from, bounce, and catch-all addresses are required")
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	return nil
}

// ValidateBilling validates the settings the usage reporter additionally needs
func (c *Config) ValidateBilling() error {
	if c.Billing.APIBaseURL == "" || c.Billing.APIKey == "" {
		return fmt.Errorf("billing API base URL and key are required")
	}
	return nil
}
