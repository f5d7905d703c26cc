package authclient

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every variable read by LoadConfigFromEnv, for example
// AUTHCLIENT_ENDPOINT_LOGIN_URL or AUTHCLIENT_REFRESH_TIMEOUT.
const EnvPrefix = "AUTHCLIENT_"

// LoadConfigFromEnv returns the default config overridden by environment
// variables. The listed dotenv files are loaded first (".env" when none are
// given); missing files are skipped and variables already set in the process
// environment win.
func LoadConfigFromEnv(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := defaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
