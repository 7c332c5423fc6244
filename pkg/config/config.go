// Package config loads YAML configuration files with environment variable
// expansion and strict key checking.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that check themselves
// after decoding.
type Validator interface {
	Validate() error
}

// Load decodes the YAML file at filename into target. Environment variable
// references ($VAR or ${VAR}) in the file are expanded before decoding, and
// unknown keys are rejected. If target implements Validator, Validate is
// called on the decoded result.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", filename, err)
	}
	return decode(filename, data, target)
}

// LoadOptional behaves like Load, but a missing file is not an error: target
// keeps whatever values it already holds, and Validate still runs so defaults
// are checked the same way a loaded file would be.
func LoadOptional[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return validate(target)
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", filename, err)
	}
	return decode(filename, data, target)
}

func decode[T any](filename string, data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("parse config file %s: %w", filename, err)
	}
	return validate(target)
}

func validate[T any](target *T) error {
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
