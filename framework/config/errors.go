package config

import (
	"errors"
	"fmt"
)

// ErrMissingConfig is matched by every *ConfigError.
var ErrMissingConfig = errors.New("missing configuration")

// ConfigError names a required key that was not set.
type ConfigError struct {
	Key    string
	Source string // env | config
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s key %q is not set", ErrMissingConfig, e.Source, e.Key)
}

func (e *ConfigError) Unwrap() error { return ErrMissingConfig }
