package cfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"loan-predictor/internal/common"
	"loan-predictor/internal/ml"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ModelDir          string
	LogisticModelFile string
	TreeModelFile     string
	DecisionPolicy    ml.Policy
	DataPath          string
	LogLevel          string
	LogFormat         string
}

type ConfigFile struct {
	Server struct {
		Port         int    `yaml:"port"`
		ReadTimeout  string `yaml:"readTimeout"`
		WriteTimeout string `yaml:"writeTimeout"`
	} `yaml:"server"`

	Models struct {
		Dir      string `yaml:"dir"`
		Logistic string `yaml:"logistic"`
		Tree     string `yaml:"tree"`
	} `yaml:"models"`

	Scoring struct {
		Policy string `yaml:"policy"`
	} `yaml:"scoring"`

	System struct {
		DataPath  string `yaml:"dataPath"`
		LogLevel  string `yaml:"logLevel"`
		LogFormat string `yaml:"logFormat"`
	} `yaml:"system"`
}

// LoadEnvFile reads KEY=VALUE pairs from path into the process environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	readTimeout, err := parseDurationOrDefault(config.Server.ReadTimeout, 10*time.Second)
	if err != nil {
		return Settings{}, fmt.Errorf("server.readTimeout: %w", err)
	}
	writeTimeout, err := parseDurationOrDefault(config.Server.WriteTimeout, 10*time.Second)
	if err != nil {
		return Settings{}, fmt.Errorf("server.writeTimeout: %w", err)
	}

	// Override with environment variables if they exist
	policy, err := ml.ParsePolicy(getEnvOrDefault(common.EnvDecisionPolicy, config.Scoring.Policy))
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		Port:              getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		ReadTimeout:       getDurationOrDefault(common.EnvReadTimeout, readTimeout),
		WriteTimeout:      getDurationOrDefault(common.EnvWriteTimeout, writeTimeout),
		ModelDir:          getEnvOrDefault(common.EnvModelDir, config.Models.Dir),
		LogisticModelFile: getEnvOrDefault(common.EnvLogisticModelFile, orDefault(config.Models.Logistic, common.DefaultLogisticModelFile)),
		TreeModelFile:     getEnvOrDefault(common.EnvTreeModelFile, orDefault(config.Models.Tree, common.DefaultTreeModelFile)),
		DecisionPolicy:    policy,
		DataPath:          getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		LogFormat:         getEnvOrDefault(common.EnvLogFormat, orDefault(config.System.LogFormat, common.DefaultLogFormat)),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	policy, err := ml.ParsePolicy(getEnvOrDefault(common.EnvDecisionPolicy, common.DefaultDecisionPolicy))
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		Port:              getIntOrDefault(common.EnvPort, common.DefaultPort),
		ReadTimeout:       getDurationOrDefault(common.EnvReadTimeout, 10*time.Second),
		WriteTimeout:      getDurationOrDefault(common.EnvWriteTimeout, 10*time.Second),
		ModelDir:          os.Getenv(common.EnvModelDir), // optional, searched when empty
		LogisticModelFile: getEnvOrDefault(common.EnvLogisticModelFile, common.DefaultLogisticModelFile),
		TreeModelFile:     getEnvOrDefault(common.EnvTreeModelFile, common.DefaultTreeModelFile),
		DecisionPolicy:    policy,
		DataPath:          os.Getenv(common.EnvDataPath), // optional
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:         getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// ModelPaths resolves the artifact locations. Absolute file names are used
// as given; relative ones are joined to the model directory.
func (s *Settings) ModelPaths() ml.ModelPaths {
	dir := ml.ResolveModelDir(s.ModelDir)
	join := func(file string) string {
		if filepath.IsAbs(file) {
			return file
		}
		return filepath.Join(dir, file)
	}
	return ml.ModelPaths{
		Logistic: join(s.LogisticModelFile),
		Tree:     join(s.TreeModelFile),
	}
}

// Addr is the listen address for the HTTP server.
func (s *Settings) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func parseDurationOrDefault(v string, defaultValue time.Duration) (time.Duration, error) {
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs range validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	minTimeout := common.MinTimeout * time.Second
	maxTimeout := common.MaxTimeout * time.Second
	if settings.ReadTimeout < minTimeout || settings.ReadTimeout > maxTimeout {
		return fmt.Errorf("read timeout must be between %v and %v, got %v", minTimeout, maxTimeout, settings.ReadTimeout)
	}
	if settings.WriteTimeout < minTimeout || settings.WriteTimeout > maxTimeout {
		return fmt.Errorf("write timeout must be between %v and %v, got %v", minTimeout, maxTimeout, settings.WriteTimeout)
	}

	if settings.LogisticModelFile == "" || settings.TreeModelFile == "" {
		return fmt.Errorf("model file names cannot be empty")
	}
	if settings.LogisticModelFile == settings.TreeModelFile {
		return fmt.Errorf("logistic and tree models must be different files, both are %s", settings.TreeModelFile)
	}

	if _, err := ml.ParsePolicy(string(settings.DecisionPolicy)); err != nil {
		return err
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(settings.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	switch strings.ToLower(settings.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", settings.LogFormat)
	}

	return nil
}
