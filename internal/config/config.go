package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thamiris-ramos/BotServer/internal/ids"
)

const (
	EnvConfigFile      = "BOTSERVER_CONFIG_FILE"
	EnvHTTPAddr        = "BOTSERVER_HTTP_ADDR"
	EnvDBDriver        = "BOTSERVER_DB_DRIVER"
	EnvDBDSN           = "BOTSERVER_DB_DSN"
	EnvDefaultBotID    = "BOT_ID"
	EnvWebchatTokenURL = "BOTSERVER_WEBCHAT_TOKEN_URL"
	EnvSpeechTokenURL  = "BOTSERVER_SPEECH_TOKEN_URL"
	EnvDefaultLocale   = "BOTSERVER_DEFAULT_LOCALE"
	EnvUpstreamTimeout = "BOTSERVER_UPSTREAM_TIMEOUT"
)

const (
	defaultHTTPAddr        = ":4242"
	defaultDBDriver        = "sqlite"
	defaultDBDSN           = "botserver.db"
	defaultWebchatTokenURL = "https://directline.botframework.com/v3/directline/tokens/generate"
	defaultSpeechTokenURL  = "https://westus.api.cognitive.microsoft.com/sts/v1.0/issueToken"
	defaultLocale          = "pt-BR"
	defaultUpstreamTimeout = 20 * time.Second
	defaultConfigFileName  = "botserver.yaml"
)

type Config struct {
	HTTPAddr        string
	DBDriver        string
	DBDSN           string
	DefaultBotID    string
	WebchatTokenURL string
	SpeechTokenURL  string
	DefaultLocale   string
	UpstreamTimeout time.Duration
	Instances       []InstanceConfig
}

// InstanceConfig seeds the instance registry at boot. Records are immutable
// once loaded.
type InstanceConfig struct {
	InstanceID                    string `yaml:"instance_id"`
	BotID                         string `yaml:"bot_id"`
	Title                         string `yaml:"title"`
	WebchatKey                    string `yaml:"webchat_key"`
	MarketplaceID                 string `yaml:"marketplace_id"`
	MarketplacePassword           string `yaml:"marketplace_password"`
	AuthenticatorAuthorityHostURL string `yaml:"authenticator_authority_host_url"`
	AuthenticatorTenant           string `yaml:"authenticator_tenant"`
	AuthenticatorClientID         string `yaml:"authenticator_client_id"`
	AuthenticatorClientSecret     string `yaml:"authenticator_client_secret"`
	BotEndpoint                   string `yaml:"bot_endpoint"`
	SpeechKey                     string `yaml:"speech_key"`
	Theme                         string `yaml:"theme"`
}

type fileConfig struct {
	HTTPAddr        string           `yaml:"http_addr"`
	DBDriver        string           `yaml:"db_driver"`
	DBDSN           string           `yaml:"db_dsn"`
	DefaultBotID    string           `yaml:"default_bot_id"`
	WebchatTokenURL string           `yaml:"webchat_token_url"`
	SpeechTokenURL  string           `yaml:"speech_token_url"`
	DefaultLocale   string           `yaml:"default_locale"`
	UpstreamTimeout string           `yaml:"upstream_timeout"`
	Instances       []InstanceConfig `yaml:"instances"`
}

// FromYAMLAndEnv loads the optional YAML file, then applies environment
// overrides on top.
func FromYAMLAndEnv() (Config, error) {
	file, err := loadFileConfig()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr:        firstNonEmpty(os.Getenv(EnvHTTPAddr), file.HTTPAddr, defaultHTTPAddr),
		DBDriver:        strings.ToLower(firstNonEmpty(os.Getenv(EnvDBDriver), file.DBDriver, defaultDBDriver)),
		DBDSN:           firstNonEmpty(os.Getenv(EnvDBDSN), file.DBDSN, defaultDBDSN),
		DefaultBotID:    firstNonEmpty(os.Getenv(EnvDefaultBotID), file.DefaultBotID),
		WebchatTokenURL: firstNonEmpty(os.Getenv(EnvWebchatTokenURL), file.WebchatTokenURL, defaultWebchatTokenURL),
		SpeechTokenURL:  firstNonEmpty(os.Getenv(EnvSpeechTokenURL), file.SpeechTokenURL, defaultSpeechTokenURL),
		DefaultLocale:   firstNonEmpty(os.Getenv(EnvDefaultLocale), file.DefaultLocale, defaultLocale),
		UpstreamTimeout: defaultUpstreamTimeout,
		Instances:       file.Instances,
	}

	if raw := firstNonEmpty(os.Getenv(EnvUpstreamTimeout), file.UpstreamTimeout); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse upstream timeout %q: %w", raw, err)
		}
		cfg.UpstreamTimeout = parsed
	}

	// Seeds may omit instance_id; bot_id is the operator-facing key.
	for i := range cfg.Instances {
		if strings.TrimSpace(cfg.Instances[i].InstanceID) == "" {
			cfg.Instances[i].InstanceID = ids.New()
		}
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%s must not be empty", EnvHTTPAddr)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%s must be sqlite or postgres", EnvDBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("%s must not be empty", EnvDBDSN)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("%s must be > 0", EnvUpstreamTimeout)
	}
	seen := make(map[string]struct{}, len(c.Instances))
	for _, inst := range c.Instances {
		if err := inst.Validate(); err != nil {
			return err
		}
		if _, dup := seen[inst.BotID]; dup {
			return fmt.Errorf("duplicate bot_id %q in instances", inst.BotID)
		}
		seen[inst.BotID] = struct{}{}
	}
	return nil
}

func (c InstanceConfig) Validate() error {
	if strings.TrimSpace(c.BotID) == "" {
		return errors.New("instance bot_id is required")
	}
	if strings.TrimSpace(c.InstanceID) == "" {
		return fmt.Errorf("instance %q: instance_id is required", c.BotID)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("instance %q: title is required", c.BotID)
	}
	if strings.TrimSpace(c.BotEndpoint) == "" {
		return fmt.Errorf("instance %q: bot_endpoint is required", c.BotID)
	}
	return nil
}

func loadFileConfig() (fileConfig, error) {
	path := strings.TrimSpace(os.Getenv(EnvConfigFile))
	if path == "" {
		if _, err := os.Stat(defaultConfigFileName); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fileConfig{}, nil
			}
			return fileConfig{}, fmt.Errorf("stat config file %s: %w", defaultConfigFileName, err)
		}
		path = defaultConfigFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
