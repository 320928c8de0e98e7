package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyPath indicates a missing analysis root
	ErrEmptyPath = errors.New("empty path")

	// ErrEmptyOutput indicates a missing artifact path
	ErrEmptyOutput = errors.New("empty output")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid workers")

	// ErrInvalidGlob indicates an ignore glob that does not compile
	ErrInvalidGlob = errors.New("invalid ignore glob")

	// ErrEmptyIgnore indicates a blank ignore substring, which would match every path
	ErrEmptyIgnore = errors.New("empty ignore entry")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: path is required", ErrEmptyPath))
	}

	if strings.TrimSpace(cfg.Output) == "" {
		errs = append(errs, fmt.Errorf("%w: output is required", ErrEmptyOutput))
	}

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	if err := validateIgnore(cfg); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateIgnore(cfg *Config) error {
	var errs []error

	for _, entry := range cfg.Ignore {
		if entry == "" {
			errs = append(errs, fmt.Errorf("%w: ignore entries must be non-empty", ErrEmptyIgnore))
		}
	}

	for _, pattern := range cfg.IgnoreGlobs {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidGlob, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// Sentinels stay matchable with errors.Is.
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

func (e *validationError) Error() string {
	return e.msg
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
