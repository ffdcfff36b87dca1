package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingTypeshed indicates no stub corpus root was configured
	ErrMissingTypeshed = errors.New("missing typeshed directory")

	// ErrInvalidVersion indicates a malformed target interpreter version
	ErrInvalidVersion = errors.New("invalid python version")

	// ErrEmptyPlatform indicates a missing target platform
	ErrEmptyPlatform = errors.New("empty platform")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Typeshed) == "" {
		errs = append(errs, fmt.Errorf("%w: set typeshed in config or STUBSCOPE_TYPESHED", ErrMissingTypeshed))
	}

	if _, err := ParseVersion(cfg.PythonVersion); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(cfg.Platform) == "" {
		errs = append(errs, fmt.Errorf("%w: platform is required", ErrEmptyPlatform))
	}

	if err := validateCache(&cfg.Cache); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateCache(cfg *CacheConfig) error {
	var errs []error

	if cfg.LookupCapacity <= 0 {
		errs = append(errs, fmt.Errorf("%w: lookup_capacity must be positive, got %d", ErrInvalidCacheSettings, cfg.LookupCapacity))
	}

	if cfg.TableCapacity <= 0 {
		errs = append(errs, fmt.Errorf("%w: table_capacity must be positive, got %d", ErrInvalidCacheSettings, cfg.TableCapacity))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The individual errors stay reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{
		msg:  fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - ")),
		errs: errs,
	}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
