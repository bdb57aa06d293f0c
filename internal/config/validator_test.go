package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
)

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{invalid("test.field", 123, "is invalid")}
		expected := "validation error [field=test.field, value=123]: is invalid"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			invalid("field1", "bad", "is invalid"),
			invalid("field2", -1, "must be positive"),
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestValidationErrors_Unwrap(t *testing.T) {
	cfg := Default()
	cfg.Peer.Side = "page"
	var err error = cfg.Validate()

	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("errors.Is(%v, ErrInvalidInput) = false, want true", err)
	}
	if !errors.Is(err, errors.ErrUnknownPeer) {
		t.Errorf("peer.side failure should carry ErrUnknownPeer: %v", err)
	}

	var verr *errors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("errors.As(%v, *ValidationError) = false", err)
	}
	if verr.Field != "peer.side" || verr.Value != "page" {
		t.Errorf("ValidationError = %+v, want peer.side=page", verr)
	}
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got errors: %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	settingsFile := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(settingsFile, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string // empty means valid
	}{
		{"content side", func(c *Config) { c.Peer.Side = "content" }, ""},
		{"unknown side", func(c *Config) { c.Peer.Side = "page" }, "peer.side"},
		{"no frequencies", func(c *Config) { c.Channel.Frequencies = nil }, "channel.frequencies"},
		{"empty frequency", func(c *Config) { c.Channel.Frequencies = []string{"demo", " "} }, "channel.frequencies[1]"},
		{"duplicate frequency", func(c *Config) { c.Channel.Frequencies = []string{"demo", "demo"} }, "channel.frequencies[1]"},
		{"uppercase level", func(c *Config) { c.Logging.Level = "DEBUG" }, ""},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"zero max size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
		{"huge max size", func(c *Config) { c.Logging.MaxSizeMB = 5000 }, "logging.max_size_mb"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
		{"metrics addr ignored when disabled", func(c *Config) { c.Metrics.Addr = "nope" }, ""},
		{"bad metrics addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "nope" }, "metrics.addr"},
		{"port only metrics addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = ":9464" }, ""},
		{"settings file exists", func(c *Config) { c.Settings.File = settingsFile }, ""},
		{"settings file missing", func(c *Config) { c.Settings.File = settingsFile + ".nope" }, "settings.file"},
		{"settings file is dir", func(c *Config) { c.Settings.File = filepath.Dir(settingsFile) }, "settings.file"},
		{"zero demo messages", func(c *Config) { c.Demo.Messages = 0 }, "demo.messages"},
		{"too many demo messages", func(c *Config) { c.Demo.Messages = maxDemoMessages + 1 }, "demo.messages"},
		{"empty demo frequency", func(c *Config) { c.Demo.Frequency = "" }, "demo.frequency"},
		{"trace pattern", func(c *Config) { c.Trace.Pattern = "l?demo" }, ""},
		{"bad trace pattern", func(c *Config) { c.Trace.Pattern = "[" }, "trace.pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			errs := cfg.Validate()

			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}
