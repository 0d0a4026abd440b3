package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/angas/tariffsaver-go/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfigApi struct {
	Address string
	Port    int16
}

type AppConfigDatabase struct {
	Path string
	// How many days daily backup files should be stored before they get deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 90
	}
	return *d.BackupRetentionDays
}

type AppConfigMqtt struct {
	Host     string
	Port     int16
	Username string
	Password string
	// Topic carrying the cumulative energy register of the meter in kWh
	Topic string
}

type AppConfigTariff struct {
	// Dynamic tariff name as known by the EKZ API
	Name string
	// Optional fixed tariff used as the savings comparison
	BaselineName *string `mapstructure:"baseline_name"`
	// Cron spec for the daily curve fetch; the provider publishes at 18:15
	FetchCron *string `mapstructure:"fetch_cron"`
}

func (t AppConfigTariff) GetFetchCron() string {
	if t.FetchCron == nil {
		return "20 18 * * *"
	}
	return *t.FetchCron
}

type AppConfigRetention struct {
	SampleDays *int `mapstructure:"sample_days"`
	PriceDays  *int `mapstructure:"price_days"`
	BookedDays *int `mapstructure:"booked_days"`
}

func (r AppConfigRetention) GetSampleDays() int {
	if r.SampleDays == nil {
		return 14
	}
	return *r.SampleDays
}

func (r AppConfigRetention) GetPriceDays() int {
	if r.PriceDays == nil {
		return 7
	}
	return *r.PriceDays
}

func (r AppConfigRetention) GetBookedDays() int {
	if r.BookedDays == nil {
		return 400
	}
	return *r.BookedDays
}

type AppConfigGui struct {
	// Timezone for period boundaries and displayed times, default: UTC
	Timezone *string `mapstructure:"timezone"`
}

func (g AppConfigGui) GetTimezone() string {
	if g.Timezone == nil {
		return "UTC"
	}
	return *g.Timezone
}

type AppConfigLogging struct {
	// Min log level for database: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for the console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return "JSON"
	}
	if strings.EqualFold(*l.DbAttrsFormat, "text") {
		return "TEXT"
	}
	return "JSON"
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	// One store per install instance; the id keys the persisted blob
	InstanceID string `mapstructure:"instance_id"`
	Api        AppConfigApi
	Database   AppConfigDatabase
	Mqtt       AppConfigMqtt
	Tariff     AppConfigTariff
	Retention  AppConfigRetention
	Gui        AppConfigGui
	Logging    AppConfigLogging
}

func Load(path string) (*AppConfig, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c AppConfig

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	if c.InstanceID == "" {
		return nil, fmt.Errorf("instance_id must be set")
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		slog.Default().Info("config file changed, restart to apply", slog.String("file", e.Name))
	})
	viper.WatchConfig()

	return &c, nil
}
