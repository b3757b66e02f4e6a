package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".clonepulse"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for clonepulse settings.
const envPrefix = "CLONEPULSE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
//
// A .env file in CWD is loaded first when present, so GITHUB_USER,
// GITHUB_REPO, and TOKEN can live next to the dataset.
func LoadConfig(configPath string) (*Config, error) {
	// Missing .env is the common case and not an error.
	_ = godotenv.Load()

	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("dataset.path", DefaultDatasetPath)
	viperCfg.SetDefault("dataset.badge_dir", DefaultBadgeDir)
	viperCfg.SetDefault("dataset.backup", DefaultDatasetBackup)

	viperCfg.SetDefault("github.user", "")
	viperCfg.SetDefault("github.repo", "")
	viperCfg.SetDefault("github.api_base", DefaultGitHubAPIBase)
	viperCfg.SetDefault("github.timeout_sec", DefaultHTTPTimeoutSec)

	viperCfg.SetDefault("report.weeks", DefaultReportWeeks)
	viperCfg.SetDefault("report.output", DefaultReportOutput)

	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.json", DefaultLogJSON)

	viperCfg.SetDefault("otel.endpoint", DefaultOTelEndpoint)
	viperCfg.SetDefault("otel.insecure", DefaultOTelInsecure)
	viperCfg.SetDefault("otel.sample_ratio", DefaultOTelSampleRatio)
	viperCfg.SetDefault("otel.environment", DefaultOTelEnvironment)
}
