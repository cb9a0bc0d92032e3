package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"sheet-probe/internal/logging"
)

// ErrInvalidParameters marks configuration rejected by validation. Invalid
// values are reported immediately, never silently defaulted.
var ErrInvalidParameters = errors.New("config: invalid parameters")

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Instrument InstrumentConfig `mapstructure:"instrument"`
	Test       TestConfig       `mapstructure:"test"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs the watch-mode cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// InstrumentConfig addresses the source-measure unit and its per-acquisition
// settings.
type InstrumentConfig struct {
	Address           string        `mapstructure:"address"`
	Channel           string        `mapstructure:"channel"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	NPLC              float64       `mapstructure:"nplc"`
	CurrentRange      string        `mapstructure:"current_range"`
	VoltageRange      string        `mapstructure:"voltage_range"`
	WaitOffset        time.Duration `mapstructure:"wait_offset"`
	ComplianceVoltage float64       `mapstructure:"compliance_voltage"`
	MaxErrorReads     int           `mapstructure:"max_error_reads"`
}

// TestConfig carries the sweep description as entered, before option
// resolution. A surface preset selects its multi-level plan; test.levels
// drives manual runs and is ignored while a preset is active.
type TestConfig struct {
	Surface          string       `mapstructure:"surface"`
	MagnitudeUnit    string       `mapstructure:"magnitude_unit"`
	SafetyThreshold  float64      `mapstructure:"safety_threshold"`
	Period           int          `mapstructure:"period"`
	DutyCycle        float64      `mapstructure:"duty_cycle"`
	InitialZero      int          `mapstructure:"initial_zero"`
	Repeats          int          `mapstructure:"repeats"`
	Levels           []float64    `mapstructure:"levels"`
	Probe            string       `mapstructure:"probe"`
	Spacing          float64      `mapstructure:"spacing"`
	Sample           SampleConfig `mapstructure:"sample"`
	OutlierStrategy  string       `mapstructure:"outlier_strategy"`
	OutlierThreshold float64      `mapstructure:"outlier_threshold"`
	InvalidLimit     float64      `mapstructure:"invalid_limit"`
}

// SampleConfig describes the sample under test. A circular sample takes its
// diameter either explicitly or from a nominal wafer size.
type SampleConfig struct {
	Shape       string  `mapstructure:"shape"`
	SideA       float64 `mapstructure:"side_a"`
	SideD       float64 `mapstructure:"side_d"`
	Wafer       string  `mapstructure:"wafer"`
	Diameter    float64 `mapstructure:"diameter"`
	ThicknessUM float64 `mapstructure:"thickness_um"`
}

// AlertingConfig defines alert conditions and routing for watch mode.
type AlertingConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	MinOhmsSq float64        `mapstructure:"min_ohms_sq"`
	MaxOhmsSq float64        `mapstructure:"max_ohms_sq"`
	Cooldown  time.Duration  `mapstructure:"cooldown"`
	Channels  []string       `mapstructure:"channels"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHEETPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sheetprobe")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "5m")
	v.SetDefault("scheduler.align_to_interval", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("instrument.channel", "1")
	v.SetDefault("instrument.request_timeout", "30s")
	v.SetDefault("instrument.nplc", 1.0)
	v.SetDefault("instrument.current_range", "auto")
	v.SetDefault("instrument.voltage_range", "")
	v.SetDefault("instrument.wait_offset", "5ms")
	v.SetDefault("instrument.compliance_voltage", 2.0)
	v.SetDefault("instrument.max_error_reads", 32)

	v.SetDefault("test.magnitude_unit", "uA")
	v.SetDefault("test.levels", []float64{50})
	v.SetDefault("test.safety_threshold", 1.0)
	v.SetDefault("test.period", 50)
	v.SetDefault("test.duty_cycle", 0.5)
	v.SetDefault("test.initial_zero", 0)
	v.SetDefault("test.repeats", 1)
	v.SetDefault("test.probe", "1.6mm-colinear")
	v.SetDefault("test.sample.shape", "square")
	v.SetDefault("test.sample.side_a", 76.2)
	v.SetDefault("test.sample.side_d", 76.2)
	v.SetDefault("test.outlier_strategy", "median-deviation")
	v.SetDefault("test.outlier_threshold", 1.6)
	v.SetDefault("test.invalid_limit", 0.2)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.cooldown", "30m")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs sanity checks on the configuration values. Test
// parameters are fully resolved so every invariant violation is reported at
// load time.
func (c *Config) Validate() error {
	if _, err := c.TestParameters(); err != nil {
		return err
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero: %w", ErrInvalidParameters)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero: %w", ErrInvalidParameters)
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown cannot be negative: %w", ErrInvalidParameters)
	}
	if c.Alerting.MinOhmsSq > 0 && c.Alerting.MaxOhmsSq > 0 && c.Alerting.MinOhmsSq > c.Alerting.MaxOhmsSq {
		return fmt.Errorf("alerting.min_ohms_sq must not exceed alerting.max_ohms_sq: %w", ErrInvalidParameters)
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置: %w", ErrInvalidParameters)
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置: %w", ErrInvalidParameters)
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
