package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// Read decodes and validates a JSON config.
func Read(r io.Reader) (*Config, error) {
	var cfg Config
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadFile reads a config from the given file, expanding environment variables first.
func ReadFile(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	cfg, err := Read(bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filePath)
	}
	return cfg, nil
}

// FromAttributes decodes and validates a config from a generic attribute map, such as the
// attributes of a component in a larger robot config.
func FromAttributes(attributes AttributeMap) (*Config, error) {
	var cfg Config
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &cfg,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return nil, err
	}
	if len(md.Unused) > 0 {
		return nil, errors.Errorf("unknown config attributes %v", md.Unused)
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return &cfg, nil
}
