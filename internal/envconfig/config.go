package envconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is read from the environment, values of the .env file do not override variables that are already set.
// Numeric values that cannot be parsed are errors
type Config struct {
	Endpoint          string        `env:"CBA_ENDPOINT,default=http://api.cba.am/exchangerates.asmx"`
	RequestTimeout    time.Duration `env:"CBA_REQUEST_TIMEOUT,default=300s,strict"`
	OutputDir         string        `env:"CBA_OUTPUT_DIR,default=data"`
	Workers           int           `env:"CBA_WORKERS,default=1,strict"`
	RequestsPerSecond float64       `env:"CBA_REQUESTS_PER_SECOND,default=0,strict"`
	LogLevel          string        `env:"CBA_LOG_LEVEL,default=info"`
}

// Load reads the optional env files (.env when none is given) and decodes the environment
func Load(files ...string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load env file: %w", err)
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("decode env: %w", err)
	}

	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("decode env: CBA_WORKERS must be positive, got %d", cfg.Workers)
	}

	return cfg, nil
}

func (c Config) EndpointURL() (*url.URL, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse endpoint: %q is not an absolute url", c.Endpoint)
	}

	return u, nil
}
