package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ggonzalez94/rise-pilot/internal/units"
)

type GlobalFlags struct {
	ConfigPath     string
	JSON           bool
	Plain          bool
	Select         string
	ResultsOnly    bool
	Chain          string
	RPCURL         string
	KeysPath       string
	ProxiesPath    string
	MaxSessions    int
	DelayMin       string
	DelayMax       string
	Timeout        string
	ReceiptTimeout string
	Simulate       bool
	Shuffle        bool
	LockPath       string
	LogLevel       string
	LogFormat      string
	EnableActions  string
}

type Settings struct {
	OutputMode      string
	SelectFields    []string
	ResultsOnly     bool
	Chain           string
	RPCURL          string
	KeysPath        string
	ProxiesPath     string
	MaxSessions     int
	DelayMin        time.Duration
	DelayMax        time.Duration
	WrapMin         string
	WrapMax         string
	FractionMin     float64
	FractionMax     float64
	ProbePause      time.Duration
	PollInterval    time.Duration
	ReceiptTimeout  time.Duration
	Timeout         time.Duration
	GasMultiplier   float64
	Simulate        bool
	ShuffleAccounts bool
	LockPath        string
	LogLevel        string
	LogFormat       string
	LogOutputs      []string
	EnableActions   []string
}

type rangeConfig struct {
	Min string `yaml:"min"`
	Max string `yaml:"max"`
}

type fractionConfig struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

type fileConfig struct {
	Output          string         `yaml:"output"`
	Chain           string         `yaml:"chain"`
	RPCURL          string         `yaml:"rpc_url"`
	KeysPath        string         `yaml:"keys_path"`
	ProxiesPath     string         `yaml:"proxies_path"`
	MaxSessions     *int           `yaml:"max_sessions"`
	Delay           rangeConfig    `yaml:"delay"`
	WrapAmount      rangeConfig    `yaml:"wrap_amount"`
	Fraction        fractionConfig `yaml:"fraction"`
	ProbePause      string         `yaml:"probe_pause"`
	PollInterval    string         `yaml:"poll_interval"`
	ReceiptTimeout  string         `yaml:"receipt_timeout"`
	Timeout         string         `yaml:"timeout"`
	GasMultiplier   *float64       `yaml:"gas_multiplier"`
	Simulate        *bool          `yaml:"simulate"`
	ShuffleAccounts *bool          `yaml:"shuffle_accounts"`
	LockPath        string         `yaml:"lock_path"`
	EnableActions   []string       `yaml:"enable_actions"`
	Log             struct {
		Level   string   `yaml:"level"`
		Format  string   `yaml:"format"`
		Outputs []string `yaml:"outputs"`
	} `yaml:"log"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if err := validate(&settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func defaultSettings() (Settings, error) {
	lockPath, err := defaultLockPath()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:     "json",
		KeysPath:       "keys.txt",
		MaxSessions:    5,
		DelayMin:       10 * time.Second,
		DelayMax:       60 * time.Second,
		WrapMin:        "0.00001",
		WrapMax:        "0.0001",
		FractionMin:    0.2,
		FractionMax:    0.4,
		ProbePause:     time.Second,
		PollInterval:   2 * time.Second,
		ReceiptTimeout: 2 * time.Minute,
		Timeout:        30 * time.Second,
		GasMultiplier:  1.2,
		LockPath:       lockPath,
		LogLevel:       "info",
		LogFormat:      "text",
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "rise", "config.yaml"), nil
}

func defaultLockPath() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "rise", "run.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Chain != "" {
		settings.Chain = cfg.Chain
	}
	if cfg.RPCURL != "" {
		settings.RPCURL = cfg.RPCURL
	}
	if cfg.KeysPath != "" {
		settings.KeysPath = cfg.KeysPath
	}
	if cfg.ProxiesPath != "" {
		settings.ProxiesPath = cfg.ProxiesPath
	}
	if cfg.MaxSessions != nil {
		settings.MaxSessions = *cfg.MaxSessions
	}
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"delay.min", cfg.Delay.Min, &settings.DelayMin},
		{"delay.max", cfg.Delay.Max, &settings.DelayMax},
		{"probe_pause", cfg.ProbePause, &settings.ProbePause},
		{"poll_interval", cfg.PollInterval, &settings.PollInterval},
		{"receipt_timeout", cfg.ReceiptTimeout, &settings.ReceiptTimeout},
		{"timeout", cfg.Timeout, &settings.Timeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	if cfg.WrapAmount.Min != "" {
		settings.WrapMin = cfg.WrapAmount.Min
	}
	if cfg.WrapAmount.Max != "" {
		settings.WrapMax = cfg.WrapAmount.Max
	}
	if cfg.Fraction.Min != nil {
		settings.FractionMin = *cfg.Fraction.Min
	}
	if cfg.Fraction.Max != nil {
		settings.FractionMax = *cfg.Fraction.Max
	}
	if cfg.GasMultiplier != nil {
		settings.GasMultiplier = *cfg.GasMultiplier
	}
	if cfg.Simulate != nil {
		settings.Simulate = *cfg.Simulate
	}
	if cfg.ShuffleAccounts != nil {
		settings.ShuffleAccounts = *cfg.ShuffleAccounts
	}
	if cfg.LockPath != "" {
		settings.LockPath = cfg.LockPath
	}
	if len(cfg.EnableActions) > 0 {
		settings.EnableActions = cfg.EnableActions
	}
	if cfg.Log.Level != "" {
		settings.LogLevel = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		settings.LogFormat = cfg.Log.Format
	}
	if len(cfg.Log.Outputs) > 0 {
		settings.LogOutputs = cfg.Log.Outputs
	}
	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("RISE_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("RISE_CHAIN"); v != "" {
		settings.Chain = v
	}
	if v := os.Getenv("RISE_RPC_URL"); v != "" {
		settings.RPCURL = v
	}
	if v := os.Getenv("RISE_KEYS_PATH"); v != "" {
		settings.KeysPath = v
	}
	if v := os.Getenv("RISE_PROXIES_PATH"); v != "" {
		settings.ProxiesPath = v
	}
	if v := os.Getenv("RISE_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.MaxSessions = n
		}
	}
	if v := os.Getenv("RISE_DELAY_MIN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.DelayMin = d
		}
	}
	if v := os.Getenv("RISE_DELAY_MAX"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.DelayMax = d
		}
	}
	if v := os.Getenv("RISE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("RISE_RECEIPT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.ReceiptTimeout = d
		}
	}
	if v := os.Getenv("RISE_GAS_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			settings.GasMultiplier = f
		}
	}
	if v := os.Getenv("RISE_SIMULATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.Simulate = b
		}
	}
	if v := os.Getenv("RISE_SHUFFLE_ACCOUNTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.ShuffleAccounts = b
		}
	}
	if v := os.Getenv("RISE_LOCK_PATH"); v != "" {
		settings.LockPath = v
	}
	if v := os.Getenv("RISE_LOG_LEVEL"); v != "" {
		settings.LogLevel = v
	}
	if v := os.Getenv("RISE_LOG_FORMAT"); v != "" {
		settings.LogFormat = v
	}
	if v := os.Getenv("RISE_ENABLE_ACTIONS"); v != "" {
		settings.EnableActions = splitList(v)
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if strings.TrimSpace(flags.Select) != "" {
		settings.SelectFields = splitList(flags.Select)
	}
	settings.ResultsOnly = flags.ResultsOnly
	if strings.TrimSpace(flags.Chain) != "" {
		settings.Chain = strings.TrimSpace(flags.Chain)
	}
	if strings.TrimSpace(flags.RPCURL) != "" {
		settings.RPCURL = strings.TrimSpace(flags.RPCURL)
	}
	if strings.TrimSpace(flags.KeysPath) != "" {
		settings.KeysPath = strings.TrimSpace(flags.KeysPath)
	}
	if strings.TrimSpace(flags.ProxiesPath) != "" {
		settings.ProxiesPath = strings.TrimSpace(flags.ProxiesPath)
	}
	if flags.MaxSessions > 0 {
		settings.MaxSessions = flags.MaxSessions
	}
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"--delay-min", flags.DelayMin, &settings.DelayMin},
		{"--delay-max", flags.DelayMax, &settings.DelayMax},
		{"--timeout", flags.Timeout, &settings.Timeout},
		{"--receipt-timeout", flags.ReceiptTimeout, &settings.ReceiptTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	if flags.Simulate {
		settings.Simulate = true
	}
	if flags.Shuffle {
		settings.ShuffleAccounts = true
	}
	if strings.TrimSpace(flags.LockPath) != "" {
		settings.LockPath = strings.TrimSpace(flags.LockPath)
	}
	if strings.TrimSpace(flags.LogLevel) != "" {
		settings.LogLevel = strings.TrimSpace(flags.LogLevel)
	}
	if strings.TrimSpace(flags.LogFormat) != "" {
		settings.LogFormat = strings.TrimSpace(flags.LogFormat)
	}
	if strings.TrimSpace(flags.EnableActions) != "" {
		settings.EnableActions = splitList(flags.EnableActions)
	}
	return nil
}

func validate(settings *Settings) error {
	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}
	if settings.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be >= 1")
	}
	if settings.DelayMin < 0 || settings.DelayMax < settings.DelayMin {
		return fmt.Errorf("delay range [%s, %s] must satisfy 0 <= min <= max", settings.DelayMin, settings.DelayMax)
	}
	wrapMin, err := units.ParseDecimal(settings.WrapMin, 18)
	if err != nil {
		return fmt.Errorf("wrap_amount.min: %w", err)
	}
	wrapMax, err := units.ParseDecimal(settings.WrapMax, 18)
	if err != nil {
		return fmt.Errorf("wrap_amount.max: %w", err)
	}
	if wrapMin.Sign() <= 0 || wrapMax.Cmp(wrapMin) < 0 {
		return fmt.Errorf("wrap_amount range [%s, %s] must satisfy 0 < min <= max", settings.WrapMin, settings.WrapMax)
	}
	if settings.FractionMin <= 0 || settings.FractionMax > 1 || settings.FractionMin > settings.FractionMax {
		return fmt.Errorf("fraction range [%g, %g] must satisfy 0 < min <= max <= 1", settings.FractionMin, settings.FractionMax)
	}
	if settings.GasMultiplier <= 1 {
		return fmt.Errorf("gas_multiplier must be > 1")
	}
	if settings.PollInterval <= 0 || settings.ReceiptTimeout <= 0 || settings.Timeout <= 0 {
		return fmt.Errorf("poll_interval, receipt_timeout and timeout must be positive")
	}
	if settings.ProbePause < 0 {
		settings.ProbePause = 0
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
