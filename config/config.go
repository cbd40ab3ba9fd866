package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/tailscale/hujson"
	"os"
	"path/filepath"
)

// maxFileSize is the largest configuration file accepted
const maxFileSize = 1 << 20

// Validator is implemented by configuration sections that can check their
// own values
type Validator interface {
	Validate() error
}

// Load reads the HuJSON (JSON with comments and trailing commas) file at
// path into v and validates the result.  Fields absent from the file keep
// the values v already holds, so v is normally populated with defaults
// first.  Unknown fields are rejected.
func Load(path string, v Validator) error {

	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)

	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	if info.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)

	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return Decode(data, v)
}

// Decode parses HuJSON data into v and validates the result
func Decode(data []byte, v Validator) error {

	std, err := hujson.Standardize(data)

	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(std))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	if err := v.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
