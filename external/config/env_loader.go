package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/mindfulvoice/backend/internal/config"
)

type envConfig struct {
	Env                string        `env:"ENV" envDefault:"production"`
	Port               string        `env:"PORT" envDefault:"3002"`
	DatabaseURL        string        `env:"DATABASE_URL,required"`
	LiveKitAPIKey      string        `env:"LIVEKIT_API_KEY,required"`
	LiveKitAPISecret   string        `env:"LIVEKIT_API_SECRET,required"`
	LiveKitURL         string        `env:"LIVEKIT_URL,required"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" envDefault:"6h"`
	CallTaskCommand    string        `env:"CALL_TASK_COMMAND" envDefault:"python3"`
	CallTaskArgs       []string      `env:"CALL_TASK_ARGS" envDefault:"make_call.py" envSeparator:" "`
	InitiateWaitWindow time.Duration `env:"INITIATE_WAIT_WINDOW" envDefault:"2s"`
	PollInterval       time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	DispatchTTL        time.Duration `env:"DISPATCH_TTL" envDefault:"5m"`
	DispatchAbandonTTL time.Duration `env:"DISPATCH_ABANDON_TTL" envDefault:"1h"`
	LocalCacheDir      string        `env:"LOCAL_CACHE_DIR" envDefault:".mindful-cache"`
	MemoryStoreURL     string        `env:"MEMORY_STORE_URL"`
	BackendURL         string        `env:"BACKEND_URL" envDefault:"http://localhost:3002"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                raw.Env,
		Port:               raw.Port,
		DatabaseURL:        raw.DatabaseURL,
		LiveKitAPIKey:      raw.LiveKitAPIKey,
		LiveKitAPISecret:   raw.LiveKitAPISecret,
		LiveKitURL:         raw.LiveKitURL,
		TokenTTL:           raw.TokenTTL,
		CallTaskCommand:    raw.CallTaskCommand,
		CallTaskArgs:       raw.CallTaskArgs,
		InitiateWaitWindow: raw.InitiateWaitWindow,
		PollInterval:       raw.PollInterval,
		DispatchTTL:        raw.DispatchTTL,
		DispatchAbandonTTL: raw.DispatchAbandonTTL,
		LocalCacheDir:      raw.LocalCacheDir,
		MemoryStoreURL:     raw.MemoryStoreURL,
		BackendURL:         raw.BackendURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
