package confab

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var defaultModels = map[string]string{
	"anthropic": "claude-3-5-sonnet-20240620",
	"openai":    "gpt-4o",
	"ollama":    "llama3.2",
	"dummy":     "dummy",
}

// Config carries everything the chat service needs. It is built once at
// process start and passed by pointer; there is no package-level state.
type Config struct {
	Backend     string  `yaml:"backend"`
	Model       string  `yaml:"modelName"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`

	SystemPrompt string `yaml:"systemPrompt"`

	// ConversationDir is where conversation files live. Defaults to
	// $HOME/.confab.
	ConversationDir string `yaml:"conversationDir"`

	// TitleInterval is the message-count cadence at which conversation
	// titles are refreshed.
	TitleInterval int `yaml:"titleInterval"`

	// MaxSteps bounds the model's tool-use loop within one turn; hitting it
	// triggers the continuation prompt.
	MaxSteps int `yaml:"maxSteps"`

	CompletionTimeout time.Duration `yaml:"completionTimeout"`

	Debug bool `yaml:"debug"`

	OpenAIAPIKey    string `yaml:"openaiAPIKey"`
	AnthropicAPIKey string `yaml:"anthropicAPIKey"`
}

// LoadConfig loads the configuration with the following precedence:
// command-line flags, environment variables, the configuration file, and
// finally defaults. A missing config file is not an error.
func LoadConfig(path string, stderr io.Writer, flagSet *pflag.FlagSet) (*Config, error) {
	if flagSet == nil {
		flagSet = pflag.CommandLine
	}
	cfg := &Config{}
	v := viper.New()

	setupViper(v, path)
	setupFlagNormalization(flagSet)

	if err := v.BindPFlags(flagSet); err != nil {
		return nil, fmt.Errorf("unable to bind flags: %w", err)
	}
	if err := handleConfigFile(v, stderr, flagSet); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	if err := setBackendAndModel(cfg, flagSet); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	logConfig(cfg, stderr, flagSet)
	return cfg, nil
}

func setupViper(v *viper.Viper, path string) {
	v.AddConfigPath("$HOME/.confab")
	v.AddConfigPath(".")
	v.SetConfigName("config")
	if path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("CONFAB")
	v.AutomaticEnv()
	v.BindEnv("openaiAPIKey", "OPENAI_API_KEY")
	v.BindEnv("anthropicAPIKey", "ANTHROPIC_API_KEY")
}

func setupFlagNormalization(flagSet *pflag.FlagSet) {
	normalizeFunc := flagSet.GetNormalizeFunc()
	flagSet.SetNormalizeFunc(func(fs *pflag.FlagSet, name string) pflag.NormalizedName {
		result := normalizeFunc(fs, name)
		name = strings.ReplaceAll(string(result), "-", "")
		return pflag.NormalizedName(name)
	})
}

func handleConfigFile(v *viper.Viper, stderr io.Writer, flagSet *pflag.FlagSet) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if verbose, _ := flagSet.GetBool("verbose"); verbose {
				fmt.Fprintln(stderr, "confab: config file not found, using defaults")
			}
		} else {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}
	return nil
}

func setBackendAndModel(cfg *Config, flagSet *pflag.FlagSet) error {
	flagBackend, flagModel := flagSet.Lookup("backend"), flagSet.Lookup("model")
	if flagBackend == nil || flagModel == nil {
		return fmt.Errorf("flags 'backend' and 'model' must be defined")
	}

	if flagBackend.Changed {
		cfg.Backend = flagBackend.Value.String()
	} else if cfg.Backend == "" {
		cfg.Backend = flagBackend.DefValue
	}

	if flagModel.Changed {
		cfg.Model = flagModel.Value.String()
	} else if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Backend]
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.ConversationDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.ConversationDir = filepath.Join(home, ".confab")
		} else {
			cfg.ConversationDir = ".confab"
		}
	}
	if cfg.TitleInterval <= 0 {
		cfg.TitleInterval = 5
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 10
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = 2 * time.Minute
	}
}

func logConfig(cfg *Config, stderr io.Writer, flagSet *pflag.FlagSet) {
	if verbose, _ := flagSet.GetBool("verbose"); verbose {
		fmt.Fprint(stderr, "confab-config: ")
		json.NewEncoder(stderr).Encode(cfg)
	}
}
