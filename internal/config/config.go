// Package config provides the client options, read in order from
// command-line flags, an optional JSON file and environment variables.
// Later sources override earlier ones. A .env file, when present, is loaded
// into the environment first.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/atinyakov/GophBank/internal/logger"
)

// EnvPrefix prefixes every environment variable, e.g. GOPHBANK_API_URL.
const EnvPrefix = "GOPHBANK"

// Storage backends.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Duration is a time.Duration written as "2s" in JSON and environment.
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.Decode(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	d.Duration = time.Duration(n)
	return nil
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	v, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Options holds the configuration values of the client.
type Options struct {
	// APIURL is the base URL of the banking API.
	APIURL string `json:"api_url" envconfig:"API_URL"`

	// CAFile, CertFile and KeyFile configure TLS. All are optional.
	CAFile   string `json:"ca_file" envconfig:"CA_FILE"`
	CertFile string `json:"cert_file" envconfig:"CERT_FILE"`
	KeyFile  string `json:"key_file" envconfig:"KEY_FILE"`

	// Storage selects the session backend: file, redis or memory.
	Storage     string `json:"storage" envconfig:"STORAGE"`
	StoragePath string `json:"storage_path" envconfig:"STORAGE_PATH"`
	// Passphrase seals the session file. It is never read from JSON.
	Passphrase string `json:"-" envconfig:"PASSPHRASE"`

	RedisAddr     string `json:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string `json:"-" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db" envconfig:"REDIS_DB"`
	RedisPrefix   string `json:"redis_prefix" envconfig:"REDIS_PREFIX"`

	LogLevel      string   `json:"log_level" envconfig:"LOG_LEVEL"`
	RedirectDelay Duration `json:"redirect_delay" envconfig:"REDIRECT_DELAY"`

	// Config is the path to the JSON config file.
	Config string `json:"-" ignored:"true"`
	// EnvFile is the path to the optional .env file.
	EnvFile string `json:"-" ignored:"true"`
	// Version asks for the build version and exit.
	Version bool `json:"-" ignored:"true"`
}

// UsageError is returned by Parse when the flags cannot be parsed or help
// was requested. errors.Is(err, flag.ErrHelp) reports the latter.
type UsageError struct {
	Err error
	// Usage lists the flags with their defaults.
	Usage string
}

func (e *UsageError) Error() string {
	return "parse flags: " + e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// Parse reads the options from args (without the program name), the config
// file and the environment.
func Parse(args []string) (*Options, error) {
	opts := &Options{RedirectDelay: Duration{2 * time.Second}}

	var usage strings.Builder
	fs := flag.NewFlagSet("gophbank", flag.ContinueOnError)
	fs.SetOutput(&usage)
	fs.Usage = func() {}
	fs.StringVar(&opts.APIURL, "url", "http://localhost:8080", "banking API base URL")
	fs.StringVar(&opts.CAFile, "ca", "", "path to CA bundle")
	fs.StringVar(&opts.CertFile, "cert", "", "path to client certificate")
	fs.StringVar(&opts.KeyFile, "key", "", "path to client key")
	fs.StringVar(&opts.Storage, "storage", StorageFile, "session storage: file | redis | memory")
	fs.StringVar(&opts.StoragePath, "storage-path", "session.json", "session file path")
	fs.StringVar(&opts.RedisAddr, "redis-addr", "localhost:6379", "redis address")
	fs.IntVar(&opts.RedisDB, "redis-db", 0, "redis database")
	fs.StringVar(&opts.RedisPrefix, "redis-prefix", "gophbank:session:", "redis key prefix")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level: debug | info | warn | error")
	fs.DurationVar(&opts.RedirectDelay.Duration, "redirect-delay", opts.RedirectDelay.Duration, "delay before returning to the dashboard")
	fs.StringVar(&opts.Config, "config", "", "path to config file")
	fs.StringVar(&opts.Config, "c", "", "path to config file (shorthand)")
	fs.StringVar(&opts.EnvFile, "env-file", ".env", "path to .env file")
	fs.BoolVar(&opts.Version, "version", false, "show build version and date")
	if err := fs.Parse(args); err != nil {
		usage.Reset()
		usage.WriteString("Usage of gophbank:\n")
		fs.PrintDefaults()
		return nil, &UsageError{Err: err, Usage: usage.String()}
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		opts.Config = configPath
	}
	if opts.Config != "" {
		data, err := os.ReadFile(opts.Config)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, opts); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks option combinations.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.APIURL) == "" {
		return errors.New("api url is required")
	}
	switch o.Storage {
	case StorageFile, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", o.Storage)
	}
	if (o.CertFile == "") != (o.KeyFile == "") {
		return errors.New("client certificate and key must be set together")
	}
	if _, err := logger.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	if o.RedirectDelay.Duration < 0 {
		return errors.New("redirect delay must not be negative")
	}
	return nil
}
