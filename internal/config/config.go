package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env              string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServerConfig `yaml:"http_server"`
	GitHubConfig     `yaml:"github"`
	ReminderConfig   `yaml:"reminders"`
	IdentityConfig   `yaml:"identity_api"`
	ChatConfig       `yaml:"chat_gateway"`
}

type HTTPServerConfig struct {
	Host        string        `yaml:"host" env-default:"localhost"`
	Port        int           `yaml:"port" env-default:"8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	AdminToken  string        `yaml:"admin_token" env:"ADMIN_TOKEN" env-required:"true"`
}

type GitHubConfig struct {
	Token          string        `yaml:"token" env:"GITHUB_TOKEN" env-required:"true"`
	Org            string        `yaml:"org" env-required:"true"`
	GraphQLURL     string        `yaml:"graphql_url" env-default:"https://api.github.com/graphql"`
	APIBaseURL     string        `yaml:"api_base_url" env-default:"https://api.github.com"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"30s"`
}

type ReminderConfig struct {
	Repositories        []string      `yaml:"repositories" env-required:"true"`
	StaleIssueDays      int           `yaml:"stale_issue_days" env-default:"14"`
	StalePRDays         int           `yaml:"stale_pr_days" env-default:"7"`
	PageSize            int           `yaml:"page_size" env-default:"100"`
	RateLimitDelay      time.Duration `yaml:"rate_limit_delay" env-default:"1s"`
	SessionTimeoutHours int           `yaml:"session_timeout_hours" env-default:"48"`
	FallbackChannelID   string        `yaml:"fallback_channel_id" env-required:"true"`
	WeeklySchedule      bool          `yaml:"weekly_schedule" env-default:"true"`
	MaxParallelWalks    int           `yaml:"max_parallel_walks" env-default:"4"`
}

type IdentityConfig struct {
	BaseURL        string        `yaml:"base_url" env:"IDENTITY_API_URL" env-required:"true"`
	APIKey         string        `yaml:"api_key" env:"IDENTITY_API_KEY"`
	CacheTTL       time.Duration `yaml:"cache_ttl" env-default:"2h"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"10s"`
}

type ChatConfig struct {
	BaseURL        string        `yaml:"base_url" env:"CHAT_GATEWAY_URL" env-required:"true"`
	APIKey         string        `yaml:"api_key" env:"CHAT_GATEWAY_KEY"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"15s"`
}

func Load() *Config {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file doesn't exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return &cfg
}
