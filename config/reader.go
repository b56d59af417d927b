package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/aidas-vision/aidas/logging"
	"github.com/aidas-vision/aidas/utils"
)

// Read reads a config from the given file. ${VAR} references are expanded from the environment
// first.
func Read(ctx context.Context, filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file
// the reader originated from.
func FromReader(ctx context.Context, originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	_, span := trace.StartSpan(ctx, "config::FromReader")
	defer span.End()

	var raw map[string]interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}

	cfg := Default()
	if err := utils.DecodeAttributeMap(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "cannot decode config")
	}
	if !hasAllowlist(raw) {
		cfg.Detector.CategoryAllowlist = cfg.Detector.Model.DefaultAllowlist()
	}
	cfg.ConfigFilePath = originalPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debugw("read config", "path", originalPath, "model", cfg.Detector.Model,
		"mode", cfg.Detector.RunningMode, "backend", cfg.Backend.Name)
	return cfg, nil
}

func hasAllowlist(raw map[string]interface{}) bool {
	det, ok := raw["detector"].(map[string]interface{})
	if !ok {
		return false
	}
	return utils.AttributeMap(det).Has("category_allowlist")
}
