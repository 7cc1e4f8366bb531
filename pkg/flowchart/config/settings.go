package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLOWCHART_"

// Settings is the engine configuration shared by the CLI and the service.
type Settings struct {
	// MaxSteps is the per-run step budget.
	MaxSteps int `validate:"gte=1"`
	// IgnoreBreakpoints runs straight through breakpointed nodes.
	IgnoreBreakpoints bool

	// EvaluatorMaxDepth and EvaluatorMaxLength bound expression complexity.
	EvaluatorMaxDepth  int `validate:"gte=1"`
	EvaluatorMaxLength int `validate:"gte=1"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`

	// Metrics selects the recorder: none, otel or prometheus.
	Metrics string `validate:"oneof=none otel prometheus"`
	// Tracing enables OpenTelemetry spans.
	Tracing bool

	Checkpoint CheckpointSettings
	Repository RepositorySettings
}

// CheckpointSettings configures where paused runs are saved.
type CheckpointSettings struct {
	// Store is none, memory or sqlite.
	Store string `validate:"oneof=none memory sqlite"`
	// Path is the SQLite database file.
	Path string `validate:"required_if=Store sqlite"`
	// Codec is json or msgpack.
	Codec string `validate:"oneof=json msgpack"`
	// Compression is none, gzip or zstd.
	Compression string `validate:"oneof=none gzip zstd"`
}

// Encoding returns the checkpoint serializer name, e.g. "msgpack+zstd".
func (c CheckpointSettings) Encoding() string {
	if c.Compression == "" || c.Compression == "none" {
		return c.Codec
	}
	return c.Codec + "+" + c.Compression
}

// RepositorySettings configures flowchart persistence.
type RepositorySettings struct {
	// Driver is memory, sqlite or postgres.
	Driver string `validate:"oneof=memory sqlite postgres"`
	// DSN is a file path for sqlite or a connection URL for postgres.
	DSN string `validate:"required_unless=Driver memory"`
}

// DefaultSettings returns settings suitable for local use.
func DefaultSettings() Settings {
	return Settings{
		MaxSteps:           10000,
		EvaluatorMaxDepth:  64,
		EvaluatorMaxLength: 4096,
		LogLevel:           "info",
		LogFormat:          "json",
		Metrics:            "none",
		Checkpoint: CheckpointSettings{
			Store:       "memory",
			Codec:       "msgpack",
			Compression: "none",
		},
		Repository: RepositorySettings{
			Driver: "memory",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("%s: invalid value %v (%s)", fe.Namespace(), fe.Value(), fe.Tag()))
	}
	return errors.Join(errs...)
}

// Apply overlays values present in cfg onto s. Keys mirror the YAML layout:
//
//	max_steps: 500
//	ignore_breakpoints: false
//	evaluator: {max_depth: 64, max_length: 4096}
//	log: {level: debug, format: text}
//	metrics: prometheus
//	tracing: true
//	checkpoint: {store: sqlite, path: runs.db, codec: json, compression: zstd}
//	repository: {driver: postgres, dsn: postgres://...}
func (s Settings) Apply(cfg Config) Settings {
	s.MaxSteps = cfg.Int("max_steps", s.MaxSteps)
	s.IgnoreBreakpoints = cfg.Bool("ignore_breakpoints", s.IgnoreBreakpoints)
	s.EvaluatorMaxDepth = cfg.Int("evaluator.max_depth", s.EvaluatorMaxDepth)
	s.EvaluatorMaxLength = cfg.Int("evaluator.max_length", s.EvaluatorMaxLength)
	s.LogLevel = strings.ToLower(cfg.String("log.level", s.LogLevel))
	s.LogFormat = strings.ToLower(cfg.String("log.format", s.LogFormat))
	s.Metrics = strings.ToLower(cfg.String("metrics", s.Metrics))
	s.Tracing = cfg.Bool("tracing", s.Tracing)

	cp := cfg.Sub("checkpoint")
	s.Checkpoint.Store = strings.ToLower(cp.String("store", s.Checkpoint.Store))
	s.Checkpoint.Path = cp.String("path", s.Checkpoint.Path)
	s.Checkpoint.Codec = strings.ToLower(cp.String("codec", s.Checkpoint.Codec))
	s.Checkpoint.Compression = strings.ToLower(cp.String("compression", s.Checkpoint.Compression))

	repo := cfg.Sub("repository")
	s.Repository.Driver = strings.ToLower(repo.String("driver", s.Repository.Driver))
	s.Repository.DSN = repo.String("dsn", s.Repository.DSN)
	return s
}

// envKeys maps FLOWCHART_* variables to Config keys.
var envKeys = map[string]string{
	"MAX_STEPS":              "max_steps",
	"IGNORE_BREAKPOINTS":     "ignore_breakpoints",
	"EVALUATOR_MAX_DEPTH":    "evaluator.max_depth",
	"EVALUATOR_MAX_LENGTH":   "evaluator.max_length",
	"LOG_LEVEL":              "log.level",
	"LOG_FORMAT":             "log.format",
	"METRICS":                "metrics",
	"TRACING":                "tracing",
	"CHECKPOINT_STORE":       "checkpoint.store",
	"CHECKPOINT_PATH":        "checkpoint.path",
	"CHECKPOINT_CODEC":       "checkpoint.codec",
	"CHECKPOINT_COMPRESSION": "checkpoint.compression",
	"REPOSITORY_DRIVER":      "repository.driver",
	"REPOSITORY_DSN":         "repository.dsn",
}

// FromEnv collects FLOWCHART_* variables into a Config with the same layout
// as a settings file. lookup is usually os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) Config {
	data := make(map[string]any)
	for env, key := range envKeys {
		v, ok := lookup(EnvPrefix + env)
		if !ok {
			continue
		}
		section, field, nested := strings.Cut(key, ".")
		if !nested {
			data[key] = v
			continue
		}
		sub, _ := data[section].(map[string]any)
		if sub == nil {
			sub = make(map[string]any)
			data[section] = sub
		}
		sub[field] = v
	}
	return New(data)
}

// LoadSettings builds Settings from defaults, then the file at path (if
// path is not empty), then FLOWCHART_* environment variables, and validates
// the result. A .env file in the working directory is loaded first.
func LoadSettings(path string) (Settings, error) {
	if err := LoadDotEnv(); err != nil {
		return Settings{}, err
	}

	s := DefaultSettings()
	if path != "" {
		cfg, err := FromFile(path)
		if err != nil {
			return Settings{}, err
		}
		s = s.Apply(cfg)
	}
	s = s.Apply(FromEnv(os.LookupEnv))

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
