package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/corpusforge/fimgen/internal/dataset"
	"github.com/corpusforge/fimgen/internal/manifest"
	"github.com/corpusforge/fimgen/internal/span"
)

// Config holds the full application configuration.
type Config struct {
	Seed     uint64         `yaml:"seed" mapstructure:"seed"`
	Charset  string         `yaml:"charset" mapstructure:"charset"`
	Policy   string         `yaml:"policy" mapstructure:"policy"`
	Span     span.Config    `yaml:"span" mapstructure:"span"`
	Eval     EvalConfig     `yaml:"eval" mapstructure:"eval"`
	Mix      MixConfig      `yaml:"mix" mapstructure:"mix"`
	Check    CheckConfig    `yaml:"check" mapstructure:"check"`
	Analyze  AnalyzeConfig  `yaml:"analyze" mapstructure:"analyze"`
	Augment  AugmentConfig  `yaml:"augment" mapstructure:"augment"`
	Split    SplitConfig    `yaml:"split" mapstructure:"split"`
	Manifest ManifestConfig `yaml:"manifest" mapstructure:"manifest"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// EvalConfig configures evaluation-set builds.
type EvalConfig struct {
	SamplesCap int `yaml:"samples_cap" mapstructure:"samples_cap"`
}

// MixConfig configures training-set mixing.
type MixConfig struct {
	Percent     float64 `yaml:"fim_percent" mapstructure:"fim_percent"`
	Mode        string  `yaml:"mode" mapstructure:"mode"`
	OutExt      string  `yaml:"out_ext" mapstructure:"out_ext"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// CheckConfig configures the syntax gate.
type CheckConfig struct {
	MaxErrors int `yaml:"max_errors" mapstructure:"max_errors"`
}

// AnalyzeConfig configures token-distribution analysis.
type AnalyzeConfig struct {
	SampleSize int `yaml:"sample_size" mapstructure:"sample_size"`
}

// AugmentConfig configures identifier renaming.
type AugmentConfig struct {
	MaxChanges int `yaml:"max_changes" mapstructure:"max_changes"`
}

// SplitConfig configures train/valid/test splitting.
type SplitConfig struct {
	Size   int                 `yaml:"size" mapstructure:"size"`
	Ratios dataset.SplitRatios `yaml:"ratios" mapstructure:"ratios"`
}

// ManifestConfig configures the run manifest backend.
type ManifestConfig struct {
	Driver      string              `yaml:"driver" mapstructure:"driver"`
	Path        string              `yaml:"path" mapstructure:"path"`
	DatabaseURL string              `yaml:"database_url" mapstructure:"database_url"`
	Pool        manifest.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ServerConfig configures the manifest viewer server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FIMGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("seed", 42)
	v.SetDefault("span.min_len", 80)
	v.SetDefault("span.max_len", 1200)
	v.SetDefault("span.max_retries", 12)
	v.SetDefault("span.language", "arkts")
	v.SetDefault("span.weights.function", 0.4)
	v.SetDefault("span.weights.line", 0.3)
	v.SetDefault("span.weights.identifier", 0.2)
	v.SetDefault("span.weights.token", 0.1)
	v.SetDefault("eval.samples_cap", 2000)
	v.SetDefault("mix.fim_percent", 20)
	v.SetDefault("mix.mode", "interleave")
	v.SetDefault("mix.out_ext", ".jsonl")
	v.SetDefault("mix.concurrency", 4)
	v.SetDefault("check.max_errors", 3)
	v.SetDefault("analyze.sample_size", 10)
	v.SetDefault("augment.max_changes", 2)
	v.SetDefault("split.ratios.train", 0.9)
	v.SetDefault("split.ratios.valid", 0.05)
	v.SetDefault("split.ratios.test", 0.05)
	v.SetDefault("manifest.driver", "sqlite")
	v.SetDefault("manifest.path", "fimgen.db")
	v.SetDefault("manifest.pool.max_conns", 10)
	v.SetDefault("manifest.pool.min_conns", 2)
	v.SetDefault("server.port", 8791)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings one command mode depends on, so bad
// configuration fails at startup instead of partway through a corpus.
func (c *Config) Validate(mode string) error {
	if err := c.validateManifest(); err != nil {
		return err
	}

	switch mode {
	case "eval":
		if err := c.Span.Validate(); err != nil {
			return eris.Wrap(err, "config: span")
		}
		if c.Eval.SamplesCap <= 0 {
			return eris.New("config: eval.samples_cap must be > 0")
		}
	case "mix":
		if err := c.Span.Validate(); err != nil {
			return eris.Wrap(err, "config: span")
		}
		if c.Mix.Percent < 0 || c.Mix.Percent > 100 {
			return eris.Errorf("config: mix.fim_percent must be within [0, 100], got %g", c.Mix.Percent)
		}
		if _, err := dataset.ParseMixMode(c.Mix.Mode); err != nil {
			return eris.Wrap(err, "config: mix.mode")
		}
		if c.Mix.Concurrency < 1 {
			return eris.New("config: mix.concurrency must be >= 1")
		}
	case "check":
		if c.Check.MaxErrors < 0 {
			return eris.New("config: check.max_errors must be >= 0")
		}
	case "augment":
		if c.Augment.MaxChanges < 1 {
			return eris.New("config: augment.max_changes must be >= 1")
		}
	case "analyze":
		if c.Analyze.SampleSize < 1 {
			return eris.New("config: analyze.sample_size must be >= 1")
		}
	case "split":
		if err := c.Split.Ratios.Validate(); err != nil {
			return eris.Wrap(err, "config: split.ratios")
		}
		if c.Split.Size < 0 {
			return eris.New("config: split.size must be >= 0")
		}
	case "runs":
		// manifest check above is all this mode needs
	case "serve":
		if c.Server.Port <= 0 {
			return eris.New("config: server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	return nil
}

func (c *Config) validateManifest() error {
	switch c.Manifest.Driver {
	case "off", "":
	case "sqlite":
		if c.Manifest.Path == "" {
			return eris.New("config: manifest.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Manifest.DatabaseURL == "" {
			return eris.New("config: manifest.database_url is required for the postgres driver")
		}
	default:
		return eris.Errorf("config: unknown manifest driver %q", c.Manifest.Driver)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
