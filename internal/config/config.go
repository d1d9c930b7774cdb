package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/missedcall/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Zoho      ZohoConfig      `yaml:"zoho" mapstructure:"zoho"`
	Telephony TelephonyConfig `yaml:"telephony" mapstructure:"telephony"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Stream    StreamConfig    `yaml:"stream" mapstructure:"stream"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Sweep     SweepConfig     `yaml:"sweep" mapstructure:"sweep"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ZohoConfig holds the OAuth client and CRM endpoints.
type ZohoConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string  `yaml:"client_secret" mapstructure:"client_secret"`
	RefreshToken string  `yaml:"refresh_token" mapstructure:"refresh_token"`
	AccountsURL  string  `yaml:"accounts_url" mapstructure:"accounts_url"`
	APIBaseURL   string  `yaml:"api_base_url" mapstructure:"api_base_url"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// TelephonyConfig holds call-log provider settings.
type TelephonyConfig struct {
	APIKey             string  `yaml:"api_key" mapstructure:"api_key"`
	AuthToken          string  `yaml:"auth_token" mapstructure:"auth_token"`
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	PageSize           int     `yaml:"page_size" mapstructure:"page_size"`
	MaxConcurrentPages int     `yaml:"max_concurrent_pages" mapstructure:"max_concurrent_pages"`
	TimeoutSecs        int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit          float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Timezone           string  `yaml:"timezone" mapstructure:"timezone"`
	HoursBack          int     `yaml:"hours_back" mapstructure:"hours_back"`
}

// ClassifyConfig configures CRM classification.
type ClassifyConfig struct {
	BatchSize               int    `yaml:"batch_size" mapstructure:"batch_size"`
	OwnersFile              string `yaml:"owners_file" mapstructure:"owners_file"`
	WatchOwners             bool   `yaml:"watch_owners" mapstructure:"watch_owners"`
	CircuitFailureThreshold int    `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int    `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// StreamConfig configures result emission.
type StreamConfig struct {
	SliceSize     int `yaml:"slice_size" mapstructure:"slice_size"`
	PacingMillis  int `yaml:"pacing_millis" mapstructure:"pacing_millis"`
	HeartbeatSecs int `yaml:"heartbeat_secs" mapstructure:"heartbeat_secs"`
}

// StoreConfig configures the processed-phone marker store. An empty driver
// disables marking.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// SweepConfig schedules background resolution passes under serve. An empty
// schedule disables them.
type SweepConfig struct {
	Schedule    string `yaml:"schedule" mapstructure:"schedule"`
	HoursBack   int    `yaml:"hours_back" mapstructure:"hours_back"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// secretEnv maps config keys to the bare environment variables the
// deployment already exports.
var secretEnv = map[string]string{
	"zoho.client_id":       "ZOHO_CLIENT_ID",
	"zoho.client_secret":   "ZOHO_CLIENT_SECRET",
	"zoho.refresh_token":   "ZOHO_REFRESH_TOKEN",
	"telephony.api_key":    "TELEPHONY_API_KEY",
	"telephony.auth_token": "TELEPHONY_AUTH_TOKEN",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MISSEDCALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range secretEnv {
		prefixed := "MISSEDCALL_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", env)
		}
	}

	v.SetDefault("zoho.accounts_url", "https://accounts.zoho.in/oauth/v2/token")
	v.SetDefault("zoho.api_base_url", "https://www.zohoapis.in/crm/v2")
	v.SetDefault("zoho.timeout_secs", 20)
	v.SetDefault("zoho.rate_limit", 5)
	v.SetDefault("telephony.base_url", "https://api.telephony.example/v1/call-logs")
	v.SetDefault("telephony.page_size", 100)
	v.SetDefault("telephony.max_concurrent_pages", 8)
	v.SetDefault("telephony.timeout_secs", 20)
	v.SetDefault("telephony.rate_limit", 10)
	v.SetDefault("telephony.timezone", "Asia/Kolkata")
	v.SetDefault("telephony.hours_back", 24)
	v.SetDefault("classify.batch_size", 5)
	v.SetDefault("classify.watch_owners", true)
	v.SetDefault("classify.circuit_failure_threshold", 5)
	v.SetDefault("classify.circuit_reset_secs", 30)
	v.SetDefault("stream.slice_size", 10)
	v.SetDefault("stream.pacing_millis", 100)
	v.SetDefault("stream.heartbeat_secs", 15)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "missedcall.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("sweep.timeout_secs", 600)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that every provider secret is present. A missing secret is
// an AuthError so the caller fails at startup rather than mid-run.
func (c *Config) Validate() error {
	var missing []string
	for _, f := range []struct {
		env   string
		value string
	}{
		{"ZOHO_CLIENT_ID", c.Zoho.ClientID},
		{"ZOHO_CLIENT_SECRET", c.Zoho.ClientSecret},
		{"ZOHO_REFRESH_TOKEN", c.Zoho.RefreshToken},
		{"TELEPHONY_API_KEY", c.Telephony.APIKey},
		{"TELEPHONY_AUTH_TOKEN", c.Telephony.AuthToken},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.env)
		}
	}
	if len(missing) > 0 {
		return resilience.NewAuthError("missing credentials: "+strings.Join(missing, ", "), nil)
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
