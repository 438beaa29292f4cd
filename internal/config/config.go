// Package config provides functionality for managing configuration options
// for the client using command-line flags, a JSON config file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Duration is a time.Duration that reads as "10s" from JSON and env.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalJSON accepts a duration string such as "5s".
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

// Options holds the configuration values for the client.
type Options struct {
	// APIURL is the base URL of the cards and profile API.
	APIURL string `json:"api_url" env:"MESTO_API_URL"`

	// AuthURL is the base URL of the registration and authentication API.
	AuthURL string `json:"auth_url" env:"MESTO_AUTH_URL"`

	// TokenFile is where the session token is persisted between runs.
	TokenFile string `json:"token_file" env:"MESTO_TOKEN_FILE"`

	// TokenSecret, when set, seals the token file with AES-GCM.
	TokenSecret string `json:"token_secret" env:"MESTO_TOKEN_SECRET"`

	// TokenDSN switches the credential store to PostgreSQL.
	TokenDSN string `json:"token_dsn" env:"MESTO_TOKEN_DSN"`

	// CAFile is an optional PEM bundle trusted in addition to system roots.
	CAFile string `json:"ca_file" env:"MESTO_CA_FILE"`
	// CertFile and KeyFile enable mutual TLS when both are set.
	CertFile string `json:"cert_file" env:"MESTO_CERT_FILE"`
	KeyFile  string `json:"key_file" env:"MESTO_KEY_FILE"`

	// LogLevel is passed to the zap logger.
	LogLevel string `json:"log_level" env:"MESTO_LOG_LEVEL"`

	// RequestTimeout bounds every API call made on behalf of a user intent.
	RequestTimeout Duration `json:"request_timeout" env:"MESTO_REQUEST_TIMEOUT"`

	// Config is the path to the config file.
	Config string `json:"-" env:"CONFIG"`
}

// Default returns the options used when nothing else is configured.
func Default() Options {
	return Options{
		APIURL:         "https://mesto.nomoreparties.co/v1/cohort-26",
		AuthURL:        "https://auth.nomoreparties.co",
		TokenFile:      "token.json",
		LogLevel:       "info",
		RequestTimeout: Duration(10 * time.Second),
		Config:         "config.json",
	}
}

// Timeout returns RequestTimeout as a time.Duration.
func (o Options) Timeout() time.Duration {
	return time.Duration(o.RequestTimeout)
}

// Parse parses the command-line flags and environment variables to set
// configuration values. Precedence, lowest first: defaults, config file,
// environment, explicitly set flags.
func Parse() (*Options, error) {
	return parse(flag.CommandLine, os.Args[1:], nil)
}

// parse is Parse with an injectable flag set and environment; a nil environ
// means the process environment.
func parse(fs *flag.FlagSet, args []string, environ map[string]string) (*Options, error) {
	opts := Default()
	flagged := Default()

	fs.StringVar(&flagged.APIURL, "api", opts.APIURL, "cards API base URL")
	fs.StringVar(&flagged.AuthURL, "auth", opts.AuthURL, "auth API base URL")
	fs.StringVar(&flagged.TokenFile, "token-file", opts.TokenFile, "path to the persisted session token")
	fs.StringVar(&flagged.TokenDSN, "token-dsn", opts.TokenDSN, "PostgreSQL DSN for the session token store")
	fs.StringVar(&flagged.CAFile, "ca", opts.CAFile, "path to CA cert")
	fs.StringVar(&flagged.CertFile, "cert", opts.CertFile, "path to client cert")
	fs.StringVar(&flagged.KeyFile, "key", opts.KeyFile, "path to client key")
	fs.StringVar(&flagged.LogLevel, "log-level", opts.LogLevel, "log level")
	fs.DurationVar((*time.Duration)(&flagged.RequestTimeout), "timeout", opts.Timeout(), "per request timeout")
	fs.StringVar(&flagged.Config, "config", opts.Config, "path to config file")
	fs.StringVar(&flagged.Config, "c", opts.Config, "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	envOpts := env.Options{}
	if environ != nil {
		envOpts.Environment = environ
	}

	// Config path may itself come from CONFIG or -c.
	opts.Config = flagged.Config
	var pathOnly struct {
		Config string `env:"CONFIG"`
	}
	if err := env.ParseWithOptions(&pathOnly, envOpts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if pathOnly.Config != "" && !set["config"] && !set["c"] {
		opts.Config = pathOnly.Config
	}

	if err := loadFile(&opts); err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(&opts, envOpts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	overrides := map[string]func(){
		"api":        func() { opts.APIURL = flagged.APIURL },
		"auth":       func() { opts.AuthURL = flagged.AuthURL },
		"token-file": func() { opts.TokenFile = flagged.TokenFile },
		"token-dsn":  func() { opts.TokenDSN = flagged.TokenDSN },
		"ca":         func() { opts.CAFile = flagged.CAFile },
		"cert":       func() { opts.CertFile = flagged.CertFile },
		"key":        func() { opts.KeyFile = flagged.KeyFile },
		"log-level":  func() { opts.LogLevel = flagged.LogLevel },
		"timeout":    func() { opts.RequestTimeout = flagged.RequestTimeout },
	}
	for name, apply := range overrides {
		if set[name] {
			apply()
		}
	}

	return &opts, nil
}

// loadFile overlays the JSON config file onto opts. A missing file is not an
// error.
func loadFile(opts *Options) error {
	if opts.Config == "" {
		return nil
	}
	data, err := os.ReadFile(opts.Config)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}
