// Package config loads LightGBM "key = value" configuration files.
//
// A Config is built once per fixture, filtered of option families that
// would make the consistency check non-reproducible, and never mutated
// afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/YuminosukeSato/gbdtcheck/pkg/log"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
)

const (
	// DefaultFile is the config file name looked up in a dataset directory.
	DefaultFile = "train.conf"

	// Delimiter is the koanf key path delimiter.
	Delimiter = "."
)

// Config is an immutable string to string option mapping.
type Config struct {
	path   string
	values map[string]string
}

// Load parses dir/name.
func Load(dir, name string) (*Config, error) {
	return LoadFile(filepath.Join(dir, name))
}

// LoadFile parses the config file at path. A missing or unreadable file
// yields a FileAccessError; a line without exactly one '=' yields a
// MalformedConfigError naming the line.
func LoadFile(path string) (*Config, error) {
	logger := log.GetLoggerWithName("config")

	if info, err := os.Stat(path); err != nil {
		return nil, errors.NewFileAccessError("config", path, err)
	} else if info.IsDir() {
		return nil, errors.NewFileAccessError("config", path, errors.New("is a directory"))
	}

	k := koanf.New(Delimiter)
	if err := k.Load(file.Provider(path), NewParser(path)); err != nil {
		var malformed *errors.MalformedConfigError
		var access *errors.FileAccessError
		if errors.As(err, &malformed) || errors.As(err, &access) {
			return nil, err
		}
		return nil, errors.NewFileAccessError("config", path, err)
	}

	cfg := &Config{path: path, values: filterDisabled(k)}
	logger.Debug("Config loaded",
		log.OperationKey, log.OperationLoadConfig,
		log.ConfigPathKey, path,
		log.ConfigKeysKey, len(cfg.values),
	)
	return cfg, nil
}

// ParseArgs parses command line tokens of the form key=value with the
// same rules as a config file. The early stopping family is filtered too.
func ParseArgs(args []string) (*Config, error) {
	raw := make(map[string]interface{}, len(args))
	for i, arg := range args {
		key, value, ok, err := parseLine(arg)
		if err != nil {
			return nil, errors.NewMalformedConfigError("", i+1, arg, err.Error())
		}
		if ok {
			raw[key] = value
		}
	}
	k := koanf.New(Delimiter)
	if err := k.Load(confmap.Provider(raw, Delimiter), nil); err != nil {
		return nil, errors.Wrap(err, "load args")
	}
	return &Config{values: filterDisabled(k)}, nil
}

// FromMap builds a Config from an in-memory map, applying the same filter.
func FromMap(m map[string]string) (*Config, error) {
	raw := make(map[string]interface{}, len(m))
	for key, value := range m {
		raw[key] = value
	}
	k := koanf.New(Delimiter)
	if err := k.Load(confmap.Provider(raw, Delimiter), nil); err != nil {
		return nil, errors.Wrap(err, "load map")
	}
	return &Config{values: filterDisabled(k)}, nil
}

func filterDisabled(k *koanf.Koanf) map[string]string {
	all := k.All()
	values := make(map[string]string, len(all))
	for key, raw := range all {
		value := fmt.Sprint(raw)
		if family, disabled := disabledFamily(key); disabled {
			errors.Warn(errors.NewDisabledOptionWarning(key, value, string(family)))
			continue
		}
		values[key] = value
	}
	return values
}

// Merge returns a new Config with other's values overriding c's.
func (c *Config) Merge(other *Config) *Config {
	merged := make(map[string]string, len(c.values)+len(other.values))
	for key, value := range c.values {
		merged[key] = value
	}
	for key, value := range other.values {
		merged[key] = value
	}
	return &Config{path: c.path, values: merged}
}

// Path returns the file the config was read from, or "" for args.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory of the config file, or "." when there is none.
func (c *Config) Dir() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// Get returns the raw value for key.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Len returns the number of options.
func (c *Config) Len() int {
	return len(c.values)
}

// Keys returns the option names in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the options.
func (c *Config) Map() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
