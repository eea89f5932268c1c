package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env                string
	Port               string
	DatabaseURL        string
	LiveKitAPIKey      string
	LiveKitAPISecret   string
	LiveKitURL         string
	TokenTTL           time.Duration
	CallTaskCommand    string
	CallTaskArgs       []string
	InitiateWaitWindow time.Duration
	PollInterval       time.Duration
	DispatchTTL        time.Duration
	DispatchAbandonTTL time.Duration
	LocalCacheDir      string
	MemoryStoreURL     string
	BackendURL         string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	for _, d := range c.requiredDurationChecks() {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

type requiredDurationField struct {
	name  string
	value time.Duration
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "LIVEKIT_API_KEY", value: c.LiveKitAPIKey},
		{name: "LIVEKIT_API_SECRET", value: c.LiveKitAPISecret},
		{name: "LIVEKIT_URL", value: c.LiveKitURL},
		{name: "CALL_TASK_COMMAND", value: c.CallTaskCommand},
	}
}

func (c *Config) requiredDurationChecks() []requiredDurationField {
	return []requiredDurationField{
		{name: "TOKEN_TTL", value: c.TokenTTL},
		{name: "INITIATE_WAIT_WINDOW", value: c.InitiateWaitWindow},
		{name: "POLL_INTERVAL", value: c.PollInterval},
		{name: "DISPATCH_TTL", value: c.DispatchTTL},
		{name: "DISPATCH_ABANDON_TTL", value: c.DispatchAbandonTTL},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
