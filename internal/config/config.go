package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Prompts are fmt templates. Empty values fall back to DefaultPrompts.
type Prompts struct {
	ClassifyConcept    string `toml:"classify_concept"`
	DescribeCategory   string `toml:"describe_category"`
	Translate          string `toml:"translate"`
	RateRelevance      string `toml:"rate_relevance"`
	DominantConcept    string `toml:"dominant_concept"`
	Novelty            string `toml:"novelty"`
	Summary            string `toml:"summary"`
	SurveyPropertyName string `toml:"survey_property_name"`
	SurveyPropertyType string `toml:"survey_property_type"`
	SurveyQuestion     string `toml:"survey_question"`
}

type ProviderConfig struct {
	Provider string   `toml:"provider"`
	Model    string   `toml:"model"`
	APIKey   string   `toml:"api_key"`
	BaseURL  string   `toml:"base_url"`
	Proxies  []string `toml:"proxies"`
}

type LLMConfig struct {
	// Providers are tried in order until one answers.
	Providers []ProviderConfig `toml:"providers"`
	// TimeoutSeconds bounds a single provider call.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type NewsConfig struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	// Concepts is the tracked concept set when none is given explicitly.
	Concepts []string `toml:"concepts"`
}

type TrialsConfig struct {
	BaseURL        string   `toml:"base_url"`
	PageSize       int      `toml:"page_size"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Conditions     []string `toml:"conditions"`
}

type SlackConfig struct {
	WebhookURL     string `toml:"webhook_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type PublishConfig struct {
	Threshold float64 `toml:"threshold"`
	MaxPosts  int     `toml:"max_posts"`
}

type SyncConfig struct {
	BackfillDays       int      `toml:"backfill_days"`
	MaxSplits          int      `toml:"max_splits"`
	ApprovedCategories []string `toml:"approved_categories"`
}

type StorageConfig struct {
	Dir string `toml:"dir"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type WikiConfig struct {
	BaseURL string `toml:"base_url"`
}

type ConcurrencyConfig struct {
	Survey int `toml:"survey"`
}

type Config struct {
	LLM         LLMConfig         `toml:"llm"`
	News        NewsConfig        `toml:"news"`
	Trials      TrialsConfig      `toml:"trials"`
	Slack       SlackConfig       `toml:"slack"`
	Publish     PublishConfig     `toml:"publish"`
	Sync        SyncConfig        `toml:"sync"`
	Storage     StorageConfig     `toml:"storage"`
	Memgraph    MemgraphConfig    `toml:"memgraph"`
	Wiki        WikiConfig        `toml:"wiki"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Prompts     Prompts           `toml:"prompts"`
}

// Default returns a configuration that runs against the public endpoints with
// a local Ollama model.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Providers: []ProviderConfig{
				{Provider: "ollama", Model: "gpt-oss:latest", BaseURL: "http://localhost:11434"},
			},
			TimeoutSeconds: 60,
		},
		News: NewsConfig{
			BaseURL:           "https://eventregistry.org/api/v1",
			RequestsPerSecond: 2,
			TimeoutSeconds:    30,
		},
		Trials: TrialsConfig{
			BaseURL:        "https://clinicaltrials.gov/api/v2",
			PageSize:       1000,
			TimeoutSeconds: 10,
		},
		Slack:       SlackConfig{TimeoutSeconds: 10},
		Publish:     PublishConfig{Threshold: 85, MaxPosts: 5},
		Sync:        SyncConfig{MaxSplits: 3, ApprovedCategories: DefaultApprovedCategories()},
		Storage:     StorageConfig{Dir: "data"},
		Wiki:        WikiConfig{BaseURL: "https://en.wikipedia.org/api/rest_v1"},
		Concurrency: ConcurrencyConfig{Survey: 5},
		Prompts:     DefaultPrompts(),
	}
}

// DefaultApprovedCategories are created approved when first discovered.
func DefaultApprovedCategories() []string {
	return []string{
		"dmoz/Health/Child_Health",
		"dmoz/Health/Conditions_and_Diseases/Immune_Disorders",
		"dmoz/Health/Conditions_and_Diseases/Infectious_Diseases",
		"dmoz/Health/Conditions_and_Diseases/Nutritional_and_Metabolic_Disorders",
		"dmoz/Health/Conditions_and_Diseases/Food_and_Water_Borne",
		"dmoz/Health/Conditions_and_Diseases/Blood_Disorders",
		"dmoz/Health/Conditions_and_Diseases/Cancer",
		"dmoz/Health/Conditions_and_Diseases/Cardiovascular_Disorders",
		"dmoz/Health/Conditions_and_Diseases/Chronic_Illness",
		"dmoz/Health/Nutrition/Disease_Prevention",
		"dmoz/Health/Public_Health_and_Safety",
		"dmoz/Health/Public_Health_and_Safety/Disease_Control_and_Prevention",
		"dmoz/Health/Public_Health_and_Safety/Developing_Countries",
		"dmoz/Health/Reproductive_Health/Sexually_Transmitted_Diseases",
		"dmoz/Science/Technology/Biotechnology",
		"dmoz/Science/Medicine",
		"dmoz/Science/Biology/Immunology",
		"dmoz/Science/Medicine/Research",
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	// slices from the file replace the defaults rather than extend them
	defaults := *cfg
	cfg.LLM.Providers = nil
	cfg.Sync.ApprovedCategories = nil
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = defaults.LLM.Providers
	}
	if cfg.Sync.ApprovedCategories == nil {
		cfg.Sync.ApprovedCategories = defaults.Sync.ApprovedCategories
	}
	cfg.Prompts = cfg.Prompts.withDefaults()

	return cfg, nil
}

// ApplyEnv overrides file values with environment variables. LLM_* variables
// target the first provider.
func (c *Config) ApplyEnv() {
	if len(c.LLM.Providers) == 0 {
		c.LLM.Providers = []ProviderConfig{{}}
	}
	first := &c.LLM.Providers[0]
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		first.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		first.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		first.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		first.BaseURL = v
	}
	if v := os.Getenv("NEWSREGISTRY_API_KEY"); v != "" {
		c.News.APIKey = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		c.Slack.WebhookURL = v
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
	if v := os.Getenv("BEACON_DATA_DIR"); v != "" {
		c.Storage.Dir = v
	}
}

// Validate reports missing credentials. These are fatal and never retried.
func (c *Config) Validate() error {
	var errs []error
	if len(c.LLM.Providers) == 0 {
		errs = append(errs, errors.New("llm: at least one provider is required"))
	}
	for i, p := range c.LLM.Providers {
		switch strings.ToLower(p.Provider) {
		case "ollama":
		case "openai", "claude", "gemini":
			if p.APIKey == "" {
				errs = append(errs, fmt.Errorf("llm.providers[%d]: api_key is required for %s", i, p.Provider))
			}
		default:
			errs = append(errs, fmt.Errorf("llm.providers[%d]: unsupported provider %q", i, p.Provider))
		}
	}
	if c.News.APIKey == "" {
		errs = append(errs, errors.New("news: api_key is required (NEWSREGISTRY_API_KEY)"))
	}
	if c.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("slack: webhook_url is required (SLACK_WEBHOOK_URL)"))
	}
	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage: dir is required"))
	}
	return errors.Join(errs...)
}
