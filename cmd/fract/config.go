package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pthm/fract"
)

// Config is read from fract.yaml and the environment. Environment variables
// (FRACT_ATTRIBUTE, FRACT_BASE_URL, FRACT_ACCEPT, FRACT_SIGNING_KEY) win over
// the file; .env in the working directory is loaded first.
type Config struct {
	Attribute  string            `yaml:"attribute"`
	BaseURL    string            `yaml:"base_url"`
	Accept     string            `yaml:"accept"`
	SigningKey string            `yaml:"signing_key"`
	Headers    map[string]string `yaml:"headers"`
	// Actions registers stand-in actions answering a fixed verdict
	// ("proceed", "abort" or "indifferent"), so envelopes that name page
	// callbacks can be replayed outside the browser.
	Actions map[string]string `yaml:"actions"`
}

// loadConfig reads path if it exists. A missing file is only an error when
// required is set.
func loadConfig(path string, required bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	for env, dst := range map[string]*string{
		"FRACT_ATTRIBUTE":   &cfg.Attribute,
		"FRACT_BASE_URL":    &cfg.BaseURL,
		"FRACT_ACCEPT":      &cfg.Accept,
		"FRACT_SIGNING_KEY": &cfg.SigningKey,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
	return cfg, nil
}

// actions builds the registry: the stock actions plus the configured
// stand-ins.
func (c *Config) actions(reg *fract.Actions) (*fract.Actions, error) {
	for name, answer := range c.Actions {
		if reg.Has(name) {
			return nil, fmt.Errorf("action %q shadows a built-in action", name)
		}
		v, err := parseVerdict(answer)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", name, err)
		}
		reg.Register(name, func(context.Context, fract.ActionCall) (fract.Verdict, error) {
			return v, nil
		})
	}
	return reg, nil
}

func parseVerdict(s string) (fract.Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "indifferent":
		return fract.Indifferent, nil
	case "proceed":
		return fract.Proceed, nil
	case "abort":
		return fract.Abort, nil
	}
	return fract.Indifferent, fmt.Errorf("unknown verdict %q", s)
}
