package config

import (
	"fmt"
	"net"
	"os"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
)

// ValidationErrors is a collection of validation errors
type ValidationErrors []*errors.ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap exposes each failure to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

func invalid(field string, value any, message string) *errors.ValidationError {
	return errors.NewValidationError(message).WithField(field).WithValue(value)
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

const (
	maxLogSizeMB    = 1000
	maxDemoMessages = 10000
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, c.validatePeer()...)
	errs = append(errs, c.validateChannel()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateMetrics()...)
	errs = append(errs, c.validateSettings()...)
	errs = append(errs, c.validateDemo()...)
	errs = append(errs, c.validateTrace()...)

	return errs
}

func (c *Config) validatePeer() ValidationErrors {
	if _, err := peer.Parse(c.Peer.Side); err != nil {
		msg := fmt.Sprintf("must be one of: %s", strings.Join(peer.ValidSides(), ", "))
		return ValidationErrors{invalid("peer.side", c.Peer.Side, msg).WithCause(err)}
	}
	return nil
}

func (c *Config) validateChannel() ValidationErrors {
	var errs ValidationErrors

	if len(c.Channel.Frequencies) == 0 {
		errs = append(errs, invalid("channel.frequencies", c.Channel.Frequencies, "must list at least one frequency"))
	}

	seen := make(map[string]bool)
	for i, f := range c.Channel.Frequencies {
		field := fmt.Sprintf("channel.frequencies[%d]", i)
		switch {
		case strings.TrimSpace(f) == "":
			errs = append(errs, invalid(field, f, "must not be empty"))
		case seen[f]:
			errs = append(errs, invalid(field, f, "duplicate frequency"))
		}
		seen[f] = true
	}

	return errs
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() ValidationErrors {
	var errs ValidationErrors

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		msg := fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", "))
		errs = append(errs, invalid("logging.level", c.Logging.Level, msg))
	}

	if c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, invalid("logging.max_size_mb", c.Logging.MaxSizeMB, "must be positive"))
	}

	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errs = append(errs, invalid("logging.max_size_mb", c.Logging.MaxSizeMB, fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB)))
	}

	if c.Logging.MaxBackups < 0 {
		errs = append(errs, invalid("logging.max_backups", c.Logging.MaxBackups, "must be non-negative"))
	}

	return errs
}

func (c *Config) validateMetrics() ValidationErrors {
	if !c.Metrics.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
		return ValidationErrors{invalid("metrics.addr", c.Metrics.Addr, "must be host:port")}
	}
	return nil
}

func (c *Config) validateSettings() ValidationErrors {
	if c.Settings.File == "" {
		return nil
	}
	info, err := os.Stat(c.Settings.File)
	switch {
	case err != nil:
		return ValidationErrors{invalid("settings.file", c.Settings.File, "file does not exist")}
	case info.IsDir():
		return ValidationErrors{invalid("settings.file", c.Settings.File, "is a directory")}
	}
	return nil
}

func (c *Config) validateDemo() ValidationErrors {
	var errs ValidationErrors

	if c.Demo.Messages <= 0 || c.Demo.Messages > maxDemoMessages {
		errs = append(errs, invalid("demo.messages", c.Demo.Messages, fmt.Sprintf("must be between 1 and %d", maxDemoMessages)))
	}
	if strings.TrimSpace(c.Demo.Frequency) == "" {
		errs = append(errs, invalid("demo.frequency", c.Demo.Frequency, "must not be empty"))
	}

	return errs
}

func (c *Config) validateTrace() ValidationErrors {
	if c.Trace.Pattern == "" {
		return nil
	}
	if _, err := glob.Compile(c.Trace.Pattern); err != nil {
		return ValidationErrors{invalid("trace.pattern", c.Trace.Pattern, "invalid glob").WithCause(err)}
	}
	return nil
}
