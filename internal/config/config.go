package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

const (
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift_jis"
)

var (
	ErrNoInputFiles         = errors.New("config: input.files cannot be empty")
	ErrNegativeCustomerCap  = errors.New("config: pipeline.customer_limit cannot be negative")
	ErrUnsupportedEncoding  = errors.New("config: unsupported input.encoding")
	ErrSnapshotPathRequired = errors.New("config: output.snapshot_path is required")
)

// Config holds application configuration.
type Config struct {
	AppName     string `mapstructure:"app_name"`
	AppVersion  string `mapstructure:"app_version"`
	Environment string `mapstructure:"environment"`

	Log          LogConfig          `mapstructure:"log"`
	Input        InputConfig        `mapstructure:"input"`
	Output       OutputConfig       `mapstructure:"output"`
	Demographics DemographicsConfig `mapstructure:"demographics"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// InputConfig lists the brand exports read by a run. Relative paths resolve against Dir.
type InputConfig struct {
	Dir       string   `mapstructure:"dir"`
	Files     []string `mapstructure:"files"`
	Encoding  string   `mapstructure:"encoding"`
	Streaming bool     `mapstructure:"streaming"`
}

type OutputConfig struct {
	SnapshotPath      string `mapstructure:"snapshot_path"`
	PrefixMapPath     string `mapstructure:"prefix_map_path"`
	MappingDBPath     string `mapstructure:"mapping_db_path"`
	LedgerDBPath      string `mapstructure:"ledger_db_path"`
	AnonymizedCSVPath string `mapstructure:"anonymized_csv_path"`
	MetricsPath       string `mapstructure:"metrics_path"`
	Pretty            bool   `mapstructure:"pretty"`
}

type DemographicsConfig struct {
	Path string `mapstructure:"path"`
}

type PipelineConfig struct {
	CustomerLimit int           `mapstructure:"customer_limit"`
	WorkerTimeout time.Duration `mapstructure:"worker_timeout"`
	MaxWorkers    int           `mapstructure:"max_workers"`
}

type TracingConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Endpoint      string  `mapstructure:"endpoint"`
	Protocol      string  `mapstructure:"protocol"`
	Insecure      bool    `mapstructure:"insecure"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "storepulse")
	v.SetDefault("app_version", "0.1.0")
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("input.dir", "data")
	v.SetDefault("input.files", []string{})
	v.SetDefault("input.encoding", EncodingUTF8)
	v.SetDefault("input.streaming", true)
	v.SetDefault("output.snapshot_path", "dist/snapshot.json")
	v.SetDefault("output.prefix_map_path", "dist/member_prefix_map.json")
	v.SetDefault("output.mapping_db_path", "")
	v.SetDefault("output.ledger_db_path", "")
	v.SetDefault("output.anonymized_csv_path", "")
	v.SetDefault("output.metrics_path", "")
	v.SetDefault("output.pretty", false)
	v.SetDefault("demographics.path", "")
	v.SetDefault("pipeline.customer_limit", 1000)
	v.SetDefault("pipeline.worker_timeout", 10*time.Minute)
	v.SetDefault("pipeline.max_workers", 0)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.protocol", "grpc")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sampling_ratio", 1.0)
}

// Load reads .env, an optional storepulse.yml and STOREPULSE_* environment variables.
// STOREPULSE_CONFIG points at an explicit config file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return LoadFrom(os.Getenv("STOREPULSE_CONFIG"))
}

// LoadFrom is Load with an explicit config file; an empty path searches the default locations.
func LoadFrom(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STOREPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("storepulse")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/storepulse")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Input.Encoding = strings.ToLower(strings.TrimSpace(c.Input.Encoding))
	switch c.Input.Encoding {
	case "", "utf8":
		c.Input.Encoding = EncodingUTF8
	case "sjis", "shift-jis", "cp932":
		c.Input.Encoding = EncodingShiftJIS
	}
	files := make([]string, 0, len(c.Input.Files))
	for _, f := range c.Input.Files {
		for _, part := range strings.Split(f, ",") {
			if part = strings.TrimSpace(part); part != "" {
				files = append(files, part)
			}
		}
	}
	c.Input.Files = files
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

func (c Config) Validate() error {
	if len(c.Input.Files) == 0 {
		return ErrNoInputFiles
	}
	if c.Pipeline.CustomerLimit < 0 {
		return ErrNegativeCustomerCap
	}
	if c.Input.Encoding != EncodingUTF8 && c.Input.Encoding != EncodingShiftJIS {
		return fmt.Errorf("%w: %q", ErrUnsupportedEncoding, c.Input.Encoding)
	}
	if strings.TrimSpace(c.Output.SnapshotPath) == "" {
		return ErrSnapshotPathRequired
	}
	return nil
}

// InputPaths resolves the configured input files against Input.Dir.
func (c Config) InputPaths() []string {
	out := make([]string, 0, len(c.Input.Files))
	for _, f := range c.Input.Files {
		if filepath.IsAbs(f) || c.Input.Dir == "" {
			out = append(out, f)
			continue
		}
		out = append(out, filepath.Join(c.Input.Dir, f))
	}
	return out
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

var Module = fx.Module("config",
	fx.Provide(Load),
)
