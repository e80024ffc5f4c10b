package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals a missing or malformed engine configuration.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrMissingCredential signals that no API credential could be resolved.
	ErrMissingCredential = errors.New("missing credential")
	// ErrValidation signals a configured value failing a required check.
	ErrValidation = errors.New("validation failed")
	// ErrUnsupportedScope signals a scope built for a different record type.
	ErrUnsupportedScope = errors.New("unsupported scope")
	// ErrServiceUnavailable signals a transport-level signal service failure.
	ErrServiceUnavailable = errors.New("signal service unavailable")
)

// ConfigurationError wraps ErrConfiguration with the offending key.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration.Error(), e.Key, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError creates a configuration error for a key.
func NewConfigurationError(key, reason string) error {
	return &ConfigurationError{Key: key, Reason: reason}
}
