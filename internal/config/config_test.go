package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Env:                "test",
		Port:               "3002",
		DatabaseURL:        "postgres://localhost/mindful",
		LiveKitAPIKey:      "key",
		LiveKitAPISecret:   "secret",
		LiveKitURL:         "wss://example.livekit.cloud",
		TokenTTL:           6 * time.Hour,
		CallTaskCommand:    "python3",
		CallTaskArgs:       []string{"make_call.py"},
		InitiateWaitWindow: 2 * time.Second,
		PollInterval:       2 * time.Second,
		DispatchTTL:        5 * time.Minute,
		DispatchAbandonTTL: time.Hour,
		LocalCacheDir:      ".mindful-cache",
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"DATABASE_URL", func(c *Config) { c.DatabaseURL = "" }},
		{"LIVEKIT_API_KEY", func(c *Config) { c.LiveKitAPIKey = "" }},
		{"LIVEKIT_API_SECRET", func(c *Config) { c.LiveKitAPISecret = "" }},
		{"LIVEKIT_URL", func(c *Config) { c.LiveKitURL = "" }},
		{"CALL_TASK_COMMAND", func(c *Config) { c.CallTaskCommand = "" }},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected error, got nil", tc.name)
		}
		if !strings.Contains(err.Error(), tc.name) {
			t.Fatalf("%s: error does not name the field: %v", tc.name, err)
		}
	}
}

func TestValidate_DurationsMustBePositive(t *testing.T) {
	cfg := validConfig()
	cfg.PollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero POLL_INTERVAL")
	}
	cfg = validConfig()
	cfg.DispatchTTL = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative DISPATCH_TTL")
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := validConfig()
	if cfg.IsDevelopment() {
		t.Fatal("test env should not be development")
	}
	cfg.Env = "development"
	if !cfg.IsDevelopment() {
		t.Fatal("expected development")
	}
}
