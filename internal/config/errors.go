package config

import "errors"

var (
	// ErrLoadConfig wraps failures reading the config file or environment.
	ErrLoadConfig = errors.New("config: load failed")
	// ErrInvalidConfig is returned by Validate for out-of-range settings.
	ErrInvalidConfig = errors.New("config: invalid value")
)
