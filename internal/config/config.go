// Package config loads service configuration from built-in defaults, an
// optional YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/itstheanurag/kodanaliz/internal/sandbox"
)

// DefaultFile is read when KODANALIZ_CONFIG is unset and the file exists.
const DefaultFile = "config.yaml"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Db       DbConfig       `yaml:"db"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Judge0   Judge0Config   `yaml:"judge0"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	// timeouts in seconds
	ReadTimeout    int      `yaml:"read_timeout"`
	WriteTimeout   int      `yaml:"write_timeout"`
	IdleTimeout    int      `yaml:"idle_timeout"`
	RequestTimeout int      `yaml:"request_timeout"`
	CORSOrigins    []string `yaml:"cors_origins"`
	GlobalRPS      float64  `yaml:"global_rps"`
	PerIPRPS       float64  `yaml:"per_ip_rps"`
	PerIPBurst     int      `yaml:"per_ip_burst"`
	MaxConcurrent  int      `yaml:"max_concurrent"`
}

type DbConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether an audit database is configured.
func (d DbConfig) Enabled() bool { return d.Host != "" }

type SandboxConfig struct {
	// Backend is "process" or "docker".
	Backend          string  `yaml:"backend"`
	WorkspaceRoot    string  `yaml:"workspace_root"`
	WallClockSeconds float64 `yaml:"wall_clock_seconds"`
	CPUSeconds       float64 `yaml:"cpu_seconds"`
	MemoryMB         int     `yaml:"memory_mb"`
	MaxOutputBytes   int     `yaml:"max_output_bytes"`
}

// RunLimits returns the execution phase limits.
func (s SandboxConfig) RunLimits() sandbox.Limits {
	return sandbox.Limits{
		WallClock:    time.Duration(s.WallClockSeconds * float64(time.Second)),
		CPUTime:      time.Duration(s.CPUSeconds * float64(time.Second)),
		AddressSpace: int64(s.MemoryMB) << 20,
	}
}

type AnalysisConfig struct {
	Workers          int      `yaml:"workers"`
	QueueCapacity    int      `yaml:"queue_capacity"`
	MaxInFlight      int      `yaml:"max_in_flight"`
	MaxSourceBytes   int      `yaml:"max_source_bytes"`
	DefaultLocale    string   `yaml:"default_locale"`
	PylintRC         string   `yaml:"pylintrc"`
	CheckstyleConfig string   `yaml:"checkstyle_config"`
	ESLintConfig     string   `yaml:"eslint_config"`
	RemoteLanguages  []string `yaml:"remote_languages"`
}

type Judge0Config struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "5000",
			ReadTimeout:    10,
			WriteTimeout:   60,
			IdleTimeout:    120,
			RequestTimeout: 60,
			CORSOrigins:    []string{"*"},
			GlobalRPS:      100,
			PerIPRPS:       5,
			PerIPBurst:     10,
			MaxConcurrent:  50,
		},
		Db: DbConfig{
			Port:    5432,
			Name:    "kodanaliz",
			SSLMode: "disable",
		},
		Sandbox: SandboxConfig{
			Backend:          "process",
			WallClockSeconds: 3,
			CPUSeconds:       2,
			MemoryMB:         256,
			MaxOutputBytes:   sandbox.DefaultMaxOutputBytes,
		},
		Analysis: AnalysisConfig{
			Workers:        4,
			QueueCapacity:  100,
			MaxInFlight:    4,
			MaxSourceBytes: 64 << 10,
			DefaultLocale:  "tr",
		},
		Judge0: Judge0Config{
			TimeoutSeconds: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// LoadConfig loads configuration from the process environment.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv)
}

// Load builds a Config using getenv for every environment lookup.
func Load(getenv func(string) string) (*Config, error) {
	conf := Default()

	path := getenv("KODANALIZ_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(conf, getenv); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func applyEnv(c *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("PORT", &c.Server.Port)
	str("DB_HOST", &c.Db.Host)
	str("DB_USER", &c.Db.User)
	str("DB_PASSWORD", &c.Db.Password)
	str("DB_NAME", &c.Db.Name)
	str("DB_SSLMODE", &c.Db.SSLMode)
	str("SANDBOX_BACKEND", &c.Sandbox.Backend)
	str("WORKSPACE_ROOT", &c.Sandbox.WorkspaceRoot)
	str("DEFAULT_LOCALE", &c.Analysis.DefaultLocale)
	str("PYLINTRC", &c.Analysis.PylintRC)
	str("CHECKSTYLE_CONFIG", &c.Analysis.CheckstyleConfig)
	str("ESLINT_CONFIG", &c.Analysis.ESLintConfig)
	str("JUDGE0_BASE", &c.Judge0.BaseURL)
	str("JUDGE0_API_KEY", &c.Judge0.APIKey)
	str("LOG_LEVEL", &c.Log.Level)

	if v := getenv("REMOTE_LANGUAGES"); v != "" {
		c.Analysis.RemoteLanguages = splitList(v)
	}
	if v := getenv("LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.Log.Pretty = b
	}
	for key, dst := range map[string]*int{
		"DB_PORT":       &c.Db.Port,
		"WORKERS":       &c.Analysis.Workers,
		"MAX_IN_FLIGHT": &c.Analysis.MaxInFlight,
	} {
		if err := integer(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port %q is not a number", c.Server.Port))
	}
	switch c.Sandbox.Backend {
	case "process", "docker":
	default:
		errs = append(errs, fmt.Errorf("sandbox.backend must be process or docker, got %q", c.Sandbox.Backend))
	}
	if c.Sandbox.WallClockSeconds <= 0 {
		errs = append(errs, errors.New("sandbox.wall_clock_seconds must be positive"))
	}
	if c.Sandbox.CPUSeconds <= 0 {
		errs = append(errs, errors.New("sandbox.cpu_seconds must be positive"))
	}
	if c.Sandbox.MemoryMB < 0 || c.Sandbox.MaxOutputBytes < 0 {
		errs = append(errs, errors.New("sandbox limits must not be negative"))
	}
	if c.Analysis.Workers <= 0 || c.Analysis.QueueCapacity <= 0 || c.Analysis.MaxInFlight <= 0 {
		errs = append(errs, errors.New("analysis.workers, queue_capacity and max_in_flight must be positive"))
	}
	if c.Analysis.DefaultLocale == "" {
		errs = append(errs, errors.New("analysis.default_locale is required"))
	}
	if len(c.Analysis.RemoteLanguages) > 0 && c.Judge0.BaseURL == "" {
		errs = append(errs, errors.New("analysis.remote_languages requires judge0.base_url"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}
