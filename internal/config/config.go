package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/you/rentalsvc/domain"
)

type AppConfig struct {
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// ServiceConfig is the externally configured price and TTL of one rentable
// service type. Changing it affects new sessions only; existing sessions keep
// the expires_at they were created with.
type ServiceConfig struct {
	Price int64  `yaml:"price"`
	TTL   string `yaml:"ttl"`
}

type RentalConfig struct {
	Services        map[string]ServiceConfig `yaml:"services"`
	StartsPerWindow int                      `yaml:"starts_per_window"`
	StartWindow     string                   `yaml:"start_window"`
}

type SchedulerConfig struct {
	Interval  string `yaml:"interval"`
	BatchSize int    `yaml:"batch_size"`
}

type ProviderConfig struct {
	Driver     string `yaml:"driver"` // httpapi | twilio
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
	// Twilio driver credentials
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type ConfigFile struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Rental    RentalConfig    `yaml:"rental"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Provider  ProviderConfig  `yaml:"provider"`
	Casbin    CasbinConfig    `yaml:"casbin"`
}

// ServicePlan is the resolved price/TTL pair for a service type.
type ServicePlan struct {
	Price int64
	TTL   time.Duration
}

type Config struct {
	Port            string
	GinMode         string
	DSN             string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	JWTIssuer       string
	Services        map[domain.ServiceType]ServicePlan
	StartsPerWindow int
	StartWindow     time.Duration
	SweepInterval   time.Duration
	SweepBatchSize  int
	ProviderDriver  string
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration
	ProviderRetries int
	TwilioSID       string
	TwilioToken     string
	CasbinModelPath string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads config/config.yml (path overridable via CONFIG_PATH) and
// resolves duration strings and per-service plans.
func Load() (*Config, error) {
	path := env("CONFIG_PATH", "config/config.yml")
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	startWindow, err := time.ParseDuration(configFile.Rental.StartWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid rental start window: %w", err)
	}

	sweepInterval, err := time.ParseDuration(configFile.Scheduler.Interval)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler interval: %w", err)
	}

	providerTimeout, err := time.ParseDuration(configFile.Provider.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid provider timeout: %w", err)
	}

	services := make(map[domain.ServiceType]ServicePlan, len(configFile.Rental.Services))
	for name, svc := range configFile.Rental.Services {
		ttl, err := time.ParseDuration(svc.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid TTL for service %s: %w", name, err)
		}
		if svc.Price <= 0 {
			return nil, fmt.Errorf("non-positive price for service %s", name)
		}
		services[domain.ServiceType(name)] = ServicePlan{Price: svc.Price, TTL: ttl}
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("no rental services configured")
	}

	batchSize := configFile.Scheduler.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Config{
		Port:            fmt.Sprintf("%d", configFile.App.Port),
		GinMode:         configFile.App.GinMode,
		DSN:             configFile.Database.DSN,
		RedisAddr:       configFile.Redis.Addr,
		RedisPassword:   configFile.Redis.Password,
		RedisDB:         configFile.Redis.DB,
		JWTSecret:       env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer:       configFile.JWT.Issuer,
		Services:        services,
		StartsPerWindow: configFile.Rental.StartsPerWindow,
		StartWindow:     startWindow,
		SweepInterval:   sweepInterval,
		SweepBatchSize:  batchSize,
		ProviderDriver:  configFile.Provider.Driver,
		ProviderBaseURL: configFile.Provider.BaseURL,
		ProviderAPIKey:  env("PROVIDER_API_KEY", configFile.Provider.APIKey),
		ProviderTimeout: providerTimeout,
		ProviderRetries: configFile.Provider.MaxRetries,
		TwilioSID:       env("TWILIO_ACCOUNT_SID", configFile.Provider.AccountSID),
		TwilioToken:     env("TWILIO_AUTH_TOKEN", configFile.Provider.AuthToken),
		CasbinModelPath: configFile.Casbin.ModelPath,
	}, nil
}

// Plan resolves the configured price and TTL for a service type.
func (c *Config) Plan(serviceType domain.ServiceType) (ServicePlan, error) {
	plan, ok := c.Services[serviceType]
	if !ok {
		return ServicePlan{}, domain.ErrUnknownServiceType
	}
	return plan, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
