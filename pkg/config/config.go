package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// SizeTier buckets a change by how much review effort it deserves.
// Smaller changes get more analysis rounds and wider searches.
type SizeTier string

const (
	TierSmall  SizeTier = "small"
	TierMedium SizeTier = "medium"
	TierLarge  SizeTier = "large"
	TierXLarge SizeTier = "xlarge"
)

// TierParams are the per-tier analysis bounds.
type TierParams struct {
	MaxIterations     int `mapstructure:"max_iterations"`
	MaxFilesPerQuery  int `mapstructure:"max_files_per_query"`
	MaxMatchesPerFile int `mapstructure:"max_matches_per_file"`
	MaxIndexFiles     int `mapstructure:"max_index_files"`
}

// SizeThreshold is the upper bound of one tier; a change must be under
// all three limits to classify into it.
type SizeThreshold struct {
	Files    int `mapstructure:"files"`
	Lines    int `mapstructure:"lines"`
	DiffSize int `mapstructure:"diff_size"`
}

// Splitting configures the partitioner.
type Splitting struct {
	// SplitThreshold is the diff byte size above which a change is
	// partitioned at all.
	SplitThreshold int `mapstructure:"split_threshold"`
	// TargetUnitSize is the byte budget per submission unit when packing
	// independent files.
	TargetUnitSize int `mapstructure:"target_unit_size"`
	// ChunkSize is the files-per-unit bound of the last-resort strategy.
	ChunkSize int `mapstructure:"chunk_size"`
}

// Extraction configures code block extraction.
type Extraction struct {
	OversizeBlockLines int `mapstructure:"oversize_block_lines"`
	FallbackRadius     int `mapstructure:"fallback_radius"`
}

// Search configures the symbol search engine.
type Search struct {
	Workers         int `mapstructure:"workers"`
	QueryTimeoutSec int `mapstructure:"query_timeout_sec"`
	CacheSize       int `mapstructure:"cache_size"`
	MaxResults      int `mapstructure:"max_results"`
	ContextLines    int `mapstructure:"context_lines"`
}

// LLM configures the decision oracle's provider.
type LLM struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Retries  int    `mapstructure:"retries"`
}

type Config struct {
	RepoPath   string                     `mapstructure:"repo_path"`
	Thresholds map[string]SizeThreshold   `mapstructure:"size_thresholds"`
	Tiers      map[string]TierParams      `mapstructure:"tiers"`
	Splitting  Splitting                  `mapstructure:"splitting"`
	Extraction Extraction                 `mapstructure:"extraction"`
	Search     Search                     `mapstructure:"search"`
	LLM        LLM                        `mapstructure:"llm"`
}

// Load reads configuration from an optional file plus DIFFSCOPE_* env
// overrides, on top of the defaults. An empty path searches the working
// directory for .diffscope.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DIFFSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(".diffscope")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always unmarshal cleanly.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("repo_path", ".")

	v.SetDefault("size_thresholds.small", map[string]any{"files": 5, "lines": 200, "diff_size": 10000})
	v.SetDefault("size_thresholds.medium", map[string]any{"files": 20, "lines": 1000, "diff_size": 50000})
	v.SetDefault("size_thresholds.large", map[string]any{"files": 50, "lines": 3000, "diff_size": 150000})

	v.SetDefault("tiers.small", map[string]any{
		"max_iterations": 6, "max_files_per_query": 30, "max_matches_per_file": 6, "max_index_files": 10,
	})
	v.SetDefault("tiers.medium", map[string]any{
		"max_iterations": 6, "max_files_per_query": 20, "max_matches_per_file": 4, "max_index_files": 6,
	})
	v.SetDefault("tiers.large", map[string]any{
		"max_iterations": 4, "max_files_per_query": 16, "max_matches_per_file": 4, "max_index_files": 4,
	})
	v.SetDefault("tiers.xlarge", map[string]any{
		"max_iterations": 2, "max_files_per_query": 10, "max_matches_per_file": 2, "max_index_files": 2,
	})

	v.SetDefault("splitting.split_threshold", 50000)
	v.SetDefault("splitting.target_unit_size", 50000)
	v.SetDefault("splitting.chunk_size", 5)

	v.SetDefault("extraction.oversize_block_lines", 300)
	v.SetDefault("extraction.fallback_radius", 10)

	v.SetDefault("search.workers", 4)
	v.SetDefault("search.query_timeout_sec", 30)
	v.SetDefault("search.cache_size", 100)
	v.SetDefault("search.max_results", 300)
	v.SetDefault("search.context_lines", 2)

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.model", "qwen2.5-coder:14b")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.retries", 3)
}

// TierFor returns the bounds for a tier, defaulting to medium for unknown
// names.
func (c *Config) TierFor(tier SizeTier) TierParams {
	if params, ok := c.Tiers[string(tier)]; ok {
		return params
	}
	return c.Tiers[string(TierMedium)]
}

// ChangeStats are the size signals a tier classification considers.
type ChangeStats struct {
	Files        int
	LinesChanged int
	DiffBytes    int
}

// ClassifySize buckets a change into the smallest tier whose thresholds
// all hold.
func (c *Config) ClassifySize(stats ChangeStats) SizeTier {
	for _, tier := range []SizeTier{TierSmall, TierMedium, TierLarge} {
		t, ok := c.Thresholds[string(tier)]
		if !ok {
			continue
		}
		if stats.Files <= t.Files && stats.LinesChanged <= t.Lines && stats.DiffBytes <= t.DiffSize {
			return tier
		}
	}
	return TierXLarge
}
