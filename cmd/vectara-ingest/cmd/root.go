package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LadyD56/vectara-ingest/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "vectara-ingest",
	Short: "Ingest web pages and documents into a Vectara corpus",
	Long: `vectara-ingest fetches URLs with a headless browser or reads local files,
extracts their text per content type, and submits the results to a Vectara corpus.

Commands:
  index-url   Fetch, extract and index one or more URLs
  index-file  Upload or index one or more local files`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// VECTARA_VECTARA_API_KEY -> vectara.api_key
	viper.SetEnvPrefix("VECTARA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("vectara.endpoint", "VECTARA_ENDPOINT")
	viper.BindEnv("vectara.customer_id", "VECTARA_CUSTOMER_ID")
	viper.BindEnv("vectara.corpus_id", "VECTARA_CORPUS_ID")
	viper.BindEnv("vectara.api_key", "VECTARA_API_KEY")
	viper.BindEnv("vectara.reindex", "VECTARA_REINDEX")
	viper.BindEnv("browser.headless", "VECTARA_BROWSER_HEADLESS")
	viper.BindEnv("extraction.remove_code", "VECTARA_REMOVE_CODE")
	viper.BindEnv("extraction.summarize_tables", "VECTARA_SUMMARIZE_TABLES")
	viper.BindEnv("summarizer.api_key", "VECTARA_SUMMARIZER_API_KEY")
	viper.BindEnv("summarizer.model", "VECTARA_SUMMARIZER_MODEL")
	viper.BindEnv("summarizer.base_url", "VECTARA_SUMMARIZER_BASE_URL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}
}

// parseMetadata turns repeated --meta key=value flags into a metadata map.
func parseMetadata(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --meta %q, expected key=value", pair)
		}
		meta[key] = value
	}
	return meta, nil
}
