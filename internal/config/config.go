package config

import "time"

// Config holds all application configuration.
type Config struct {
	Vectara    Vectara    `mapstructure:"vectara"`
	Browser    Browser    `mapstructure:"browser"`
	Extraction Extraction `mapstructure:"extraction"`
	Summarizer Summarizer `mapstructure:"summarizer"`
}

// Vectara holds corpus connection configuration.
type Vectara struct {
	Endpoint   string        `mapstructure:"endpoint"`
	CustomerID string        `mapstructure:"customer_id"`
	CorpusID   int           `mapstructure:"corpus_id"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Reindex    bool          `mapstructure:"reindex"`
}

// Browser holds headless browser configuration.
type Browser struct {
	NavTimeout time.Duration `mapstructure:"nav_timeout"`
	Headless   bool          `mapstructure:"headless"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// Extraction holds content extraction configuration.
type Extraction struct {
	RemoveCode      bool  `mapstructure:"remove_code"`
	SummarizeTables bool  `mapstructure:"summarize_tables"`
	MaxUploadMB     int64 `mapstructure:"max_upload_mb"`
}

// Summarizer holds table summarization LLM configuration.
type Summarizer struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Vectara: Vectara{
			Endpoint: "api.vectara.io",
			Timeout:  60 * time.Second,
			Reindex:  true,
		},
		Browser: Browser{
			NavTimeout: 60 * time.Second,
			Headless:   true,
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:98.0) Gecko/20100101 Firefox/98.0",
		},
		Extraction: Extraction{
			RemoveCode:      true,
			SummarizeTables: false, // requires a summarizer API key
			MaxUploadMB:     50,
		},
		Summarizer: Summarizer{
			Model: "gpt-3.5-turbo",
		},
	}
}
