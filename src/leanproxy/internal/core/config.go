// Package core provides the configuration and logging foundation of the proxy.
package core

import (
	"fmt"
	"os"
	"path/filepath"

	uber_config "go.uber.org/config"
	"go.uber.org/fx"
)

// ConfigModule provides the YAML configuration into an Fx application.
var ConfigModule = fx.Options(
	fx.Provide(NewConfig),
)

const (
	_configDirEnv = "LEANPROXY_CONFIG_DIR"

	_baseConfigFile  = "base.yaml"
	_localConfigFile = "local.yaml"
)

// NewConfig loads base.yaml, plus local.yaml when present, from the config
// directory. Values support ${ENV_VAR} expansion.
func NewConfig() (uber_config.Provider, error) {
	configDir := getConfigDir()

	var options []uber_config.YAMLOption
	basePath := filepath.Join(configDir, _baseConfigFile)
	if _, err := os.Stat(basePath); err != nil {
		return nil, fmt.Errorf("missing base configuration %q: %w", basePath, err)
	}
	options = append(options, uber_config.File(basePath))

	localPath := filepath.Join(configDir, _localConfigFile)
	if _, err := os.Stat(localPath); err == nil {
		options = append(options, uber_config.File(localPath))
	}

	options = append(options, uber_config.Expand(os.LookupEnv))

	provider, err := uber_config.NewYAML(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return provider, nil
}

// getConfigDir returns the path to the configuration directory.
func getConfigDir() string {
	if configDir := os.Getenv(_configDirEnv); configDir != "" {
		return configDir
	}

	// Default to the config directory relative to the current working
	// directory. This assumes the binary is run from the repository root.
	return "config"
}
