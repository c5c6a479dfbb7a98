package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadsplit/internal/balance"
	"github.com/sells-group/leadsplit/internal/join"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Input   InputConfig   `yaml:"input" mapstructure:"input"`
	Columns ColumnsConfig `yaml:"columns" mapstructure:"columns"`
	Balance BalanceConfig `yaml:"balance" mapstructure:"balance"`
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
}

// StoreConfig configures the run history backend. Driver is sqlite,
// postgres, or none.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP upload surface.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// InputConfig names the sheets read from uploaded workbooks.
type InputConfig struct {
	MailingSheet string `yaml:"mailing_sheet" mapstructure:"mailing_sheet"`
	DialerSheet  string `yaml:"dialer_sheet" mapstructure:"dialer_sheet"`
	LogSheet     string `yaml:"log_sheet" mapstructure:"log_sheet"`
	LogCharset   string `yaml:"log_charset" mapstructure:"log_charset"`
}

// ColumnsConfig binds spreadsheet columns to their meaning.
type ColumnsConfig struct {
	AccountKey   string   `yaml:"account_key" mapstructure:"account_key"`
	TaxID        string   `yaml:"tax_id" mapstructure:"tax_id"`
	Owner        string   `yaml:"owner" mapstructure:"owner"`
	Priority     string   `yaml:"priority" mapstructure:"priority"`
	ContactKey   string   `yaml:"contact_key" mapstructure:"contact_key"`
	ContactOwner string   `yaml:"contact_owner" mapstructure:"contact_owner"`
	Phones       []string `yaml:"phones" mapstructure:"phones"`
	Retain       []string `yaml:"retain" mapstructure:"retain"`
	LogKey       string   `yaml:"log_key" mapstructure:"log_key"`
}

// BalanceConfig tunes the load-balancing engine. Seed 0 means a fresh
// time-based seed per run.
type BalanceConfig struct {
	ReservedTokens []string `yaml:"reserved_tokens" mapstructure:"reserved_tokens"`
	MaxAgents      int      `yaml:"max_agents" mapstructure:"max_agents"`
	Relevel        bool     `yaml:"relevel" mapstructure:"relevel"`
	RelevelFactor  int      `yaml:"relevel_factor" mapstructure:"relevel_factor"`
	Seed           uint64   `yaml:"seed" mapstructure:"seed"`
}

// SyncConfig tunes the cross-dataset synchronizer.
type SyncConfig struct {
	MatchRateThreshold float64 `yaml:"match_rate_threshold" mapstructure:"match_rate_threshold"`
}

// ExportConfig configures output packaging.
type ExportConfig struct {
	OutputDir      string `yaml:"output_dir" mapstructure:"output_dir"`
	Concurrency    int    `yaml:"concurrency" mapstructure:"concurrency"`
	IncludeMailing bool   `yaml:"include_mailing" mapstructure:"include_mailing"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadsplit.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 2.0)
	v.SetDefault("server.rate_burst", 4)
	v.SetDefault("server.max_upload_mb", 64)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("input.mailing_sheet", "Mailing")
	v.SetDefault("input.dialer_sheet", "Discador")
	v.SetDefault("input.log_charset", "utf-8")
	v.SetDefault("columns.account_key", "CONTRATO")
	v.SetDefault("columns.tax_id", "CPF_CNPJ")
	v.SetDefault("columns.owner", "RESPONSAVEL")
	v.SetDefault("columns.contact_key", "CONTRATO")
	v.SetDefault("columns.phones", []string{"TELEFONE_1", "TELEFONE_2", "TELEFONE_3"})
	v.SetDefault("columns.log_key", "CONTRATO")
	v.SetDefault("balance.reserved_tokens", balance.DefaultReservedTokens)
	v.SetDefault("balance.max_agents", balance.DefaultMaxAgents)
	v.SetDefault("balance.relevel", false)
	v.SetDefault("balance.relevel_factor", balance.DefaultRelevelFactor)
	v.SetDefault("balance.seed", 0)
	v.SetDefault("sync.match_rate_threshold", join.DefaultMatchRateThreshold)
	v.SetDefault("export.output_dir", "out")
	v.SetDefault("export.concurrency", 4)
	v.SetDefault("export.include_mailing", true)

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

// Validate checks the fields required by mode: morning, afternoon, or serve.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, key string) {
		if !ok {
			errs = append(errs, key+" is required")
		}
	}

	switch mode {
	case "morning", "afternoon", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	require(c.Columns.AccountKey != "", "columns.account_key")
	require(c.Columns.TaxID != "", "columns.tax_id")
	require(c.Columns.Owner != "", "columns.owner")
	require(c.Columns.ContactKey != "", "columns.contact_key")
	require(len(c.Columns.Phones) > 0, "columns.phones")
	if mode == "afternoon" || mode == "serve" {
		require(c.Columns.LogKey != "", "columns.log_key")
	}
	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		require(c.Store.DatabaseURL != "", "store.database_url")
	case "none", "":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite, postgres, or none, got %q", c.Store.Driver))
	}

	if c.Balance.MaxAgents < 1 {
		errs = append(errs, "balance.max_agents must be at least 1")
	}
	if c.Balance.RelevelFactor < 1 {
		errs = append(errs, "balance.relevel_factor must be at least 1")
	}
	if c.Sync.MatchRateThreshold < 0 || c.Sync.MatchRateThreshold > 1 {
		errs = append(errs, fmt.Sprintf("sync.match_rate_threshold must be in [0,1], got %v", c.Sync.MatchRateThreshold))
	}
	if c.Export.Concurrency < 1 || c.Export.Concurrency > 64 {
		errs = append(errs, fmt.Sprintf("export.concurrency must be 1-64, got %d", c.Export.Concurrency))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
