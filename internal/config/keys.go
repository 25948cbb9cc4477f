package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// field binds a dotted key to a Config field.
type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(ptr func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			*ptr(c) = v
			return nil
		},
	}
}

func intField(ptr func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, v)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func durationField(ptr func(c *Config) *time.Duration) field {
	return field{
		get: func(c *Config) string { return ptr(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not a duration", ErrInvalidValue, v)
			}
			*ptr(c) = d
			return nil
		},
	}
}

func boolField(ptr func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v)
			}
			*ptr(c) = b
			return nil
		},
	}
}

//nolint:gochecknoglobals // read-only key table
var fields = map[string]field{
	"api.base_url":            stringField(func(c *Config) *string { return &c.API.BaseURL }),
	"api.timeout":             durationField(func(c *Config) *time.Duration { return &c.API.Timeout }),
	"api.max_attempts":        intField(func(c *Config) *int { return &c.API.MaxAttempts }),
	"api.base_delay":          durationField(func(c *Config) *time.Duration { return &c.API.BaseDelay }),
	"api.max_delay":           durationField(func(c *Config) *time.Duration { return &c.API.MaxDelay }),
	"api.retry_client_errors": boolField(func(c *Config) *bool { return &c.API.RetryClientErrors }),
	"output.default_format":   stringField(func(c *Config) *string { return &c.Output.DefaultFormat }),
	"output.page_size":        intField(func(c *Config) *int { return &c.Output.PageSize }),
	"logging.level":           stringField(func(c *Config) *string { return &c.Logging.Level }),
	"logging.format":          stringField(func(c *Config) *string { return &c.Logging.Format }),
	"logging.file":            stringField(func(c *Config) *string { return &c.Logging.File }),
	"session.store":           stringField(func(c *Config) *string { return &c.Session.Store }),
	"session.dir":             stringField(func(c *Config) *string { return &c.Session.Dir }),
	"session.profile":         stringField(func(c *Config) *string { return &c.Session.Profile }),
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key such as "api.base_url".
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// Set assigns a dotted key. The value is parsed for the key's type but the
// resulting Config is not validated.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.set(c, value)
}

// List returns every key with its current value.
func (c *Config) List() map[string]string {
	out := make(map[string]string, len(fields))
	for k, f := range fields {
		out[k] = f.get(c)
	}
	return out
}
