package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080", MonitorPort: "8081", ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second},
		Storage: StorageConfig{DataDir: "./data"},
		Relay:   RelayConfig{Host: "localhost", Port: 25, HeloName: "localhost", Timeout: 30 * time.Second},
		Email: EmailConfig{
			FromAddress:     "digest@courier.test",
			BounceAddress:   "bounces@courier.test",
			CatchAllAddress: "monitor@courier.test",
		},
		Scheduler: SchedulerConfig{IntervalMinutes: 60},
		Billing:   BillingConfig{APIBaseURL: "https://api.stripe.com", APIKey: "sk_test_123"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing server port", func(c *Config) { c.Server.Port = "" }},
		{"missing data dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"missing relay host", func(c *Config) { c.Relay.Host = "" }},
		{"zero relay port", func(c *Config) { c.Relay.Port = 0 }},
		{"missing from address", func(c *Config) { c.Email.FromAddress = "" }},
		{"missing bounce address", func(c *Config) { c.Email.BounceAddress = "" }},
		{"missing catch-all address", func(c *Config) { c.Email.CatchAllAddress = "" }},
		{"zero scheduler interval", func(c *Config) { c.Scheduler.IntervalMinutes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateBilling(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.ValidateBilling())

	cfg.Billing.APIKey = ""
	assert.Error(t, cfg.ValidateBilling())
}

func TestRelayAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "localhost:25", cfg.Relay.RelayAddr())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "8081", cfg.Server.MonitorPort)
	assert.Equal(t, 25, cfg.Relay.Port)
	assert.Equal(t, 60, cfg.Scheduler.IntervalMinutes)
	assert.Equal(t, "https://api.stripe.com", cfg.Billing.APIBaseURL)
}
