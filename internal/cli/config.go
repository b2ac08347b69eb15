package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/foundrylabs/foundry-go/internal/log"
	"github.com/foundrylabs/foundry-go/pkg/foundry"
)

// Keyring identifiers for the stored API key.
const (
	keyringService = "foundry"
	keyringAccount = "api-key"
)

// Environment variables honored by the CLI, in addition to the ones the
// SDK reads itself.
const (
	envEndpoint = "FOUNDRY_ENDPOINT"
	envAPIKey   = "FOUNDRY_API_KEY"
)

// FileConfig is the on-disk configuration at ~/.foundry/config.yaml.
type FileConfig struct {
	Endpoint   string `yaml:"endpoint,omitempty"`
	APIVersion string `yaml:"api_version,omitempty"`
	Model      string `yaml:"model,omitempty"`
}

// defaultConfigPath returns ~/.foundry/config.yaml.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".foundry", "config.yaml"), nil
}

// loadFileConfig reads the config file at path, or the default location
// when path is empty. A missing file yields a zero config.
func loadFileConfig(path string) (FileConfig, error) {
	if path == "" {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return FileConfig{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// resolveAPIKey finds the API key: environment first, then the system
// keyring.
func resolveAPIKey() (string, error) {
	if key := os.Getenv(envAPIKey); key != "" {
		return key, nil
	}
	key, err := keyring.Get(keyringService, keyringAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("no API key found: set %s or run 'foundry auth login'", envAPIKey)
		}
		return "", fmt.Errorf("cannot read API key from keyring: %w", err)
	}
	return key, nil
}

// resolveEndpoint applies the precedence flag > environment > config file.
func resolveEndpoint(fileCfg FileConfig) (string, error) {
	if flagEndpoint != "" {
		return flagEndpoint, nil
	}
	if endpoint := os.Getenv(envEndpoint); endpoint != "" {
		return endpoint, nil
	}
	if fileCfg.Endpoint != "" {
		return fileCfg.Endpoint, nil
	}
	return "", fmt.Errorf("no endpoint configured: set %s, use --endpoint, or add it to the config file", envEndpoint)
}

// newSDKClient builds the transport client from the resolved configuration.
func newSDKClient() (*foundry.Client, FileConfig, error) {
	fileCfg, err := loadFileConfig(flagConfig)
	if err != nil {
		return nil, FileConfig{}, err
	}
	endpoint, err := resolveEndpoint(fileCfg)
	if err != nil {
		return nil, FileConfig{}, err
	}
	key, err := resolveAPIKey()
	if err != nil {
		return nil, FileConfig{}, err
	}

	logger := log.Discard()
	if flagVerbose {
		cfg := log.FromEnv()
		cfg.Level = "debug"
		logger = log.New(cfg)
	}

	client, err := foundry.NewClient(foundry.Config{
		Endpoint:    endpoint,
		Credentials: foundry.APIKeyCredentials{APIKey: key},
		APIVersion:  fileCfg.APIVersion,
		UserAgent:   "foundry-cli",
		Logger:      logger,
	})
	if err != nil {
		return nil, FileConfig{}, err
	}
	return client, fileCfg, nil
}
