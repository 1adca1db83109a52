package app

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/reddy-bhavesh/sarral-scan/internal/server"
	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// EnvPrefix prefixes every environment variable read through viper.
const EnvPrefix = "SARRAL"

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Stream client
	APIURL        string
	StreamPath    string
	Transport     string
	TokenParam    string
	TokenFile     string
	TokenEnv      string
	RetryStrategy string
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
	EventsPolicy  string
	EventTypes    []string

	// Development server
	Server server.Config

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags and the commands)
// 2. Environment variables (SARRAL_*)
// 3. .env files
// 4. Config file (configFile, or ~/.sarral-scan.yaml and ./.sarral-scan.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// LOG_* are shared with other tools and read without the prefix
	_ = v.BindEnv("log.level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.format", EnvPrefix+"_LOG_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("log.output", EnvPrefix+"_LOG_OUTPUT", "LOG_OUTPUT")
	_ = v.BindEnv("no_color", EnvPrefix+"_NO_COLOR", "NO_COLOR")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".sarral-scan")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "cannot read config file", err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		APIURL:        v.GetString("api_url"),
		StreamPath:    v.GetString("stream_path"),
		Transport:     v.GetString("transport"),
		TokenParam:    v.GetString("token_param"),
		TokenFile:     v.GetString("token_file"),
		TokenEnv:      v.GetString("token_env"),
		RetryStrategy: v.GetString("retry.strategy"),
		RetryDelay:    v.GetDuration("retry.delay"),
		RetryMaxDelay: v.GetDuration("retry.max_delay"),
		EventsPolicy:  v.GetString("events.policy"),
		EventTypes:    stringList(v, "events.types"),

		Server: server.Config{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			StreamPath:     v.GetString("server.stream_path"),
			WebSocketPath:  v.GetString("server.websocket_path"),
			EmitPath:       v.GetString("server.emit_path"),
			CORSEnabled:    v.GetBool("server.cors"),
			CORSOrigins:    stringList(v, "server.cors_origins"),
			JWTSecret:      v.GetString("server.jwt_secret"),
			TokenTTL:       v.GetDuration("server.token_ttl"),
			RateLimit:      v.GetInt("server.rate_limit"),
			RateBurst:      v.GetInt("server.rate_burst"),
			Heartbeat:      v.GetDuration("server.heartbeat"),
			ReplayTTL:      v.GetDuration("server.replay_ttl"),
			ReplaySize:     v.GetInt("server.replay_size"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			IdleTimeout:    v.GetDuration("server.idle_timeout"),
			MetricsEnabled: v.GetBool("server.metrics"),
		},

		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		LogOutput: v.GetString("log.output"),
	}

	return config, nil
}

// setDefaults registers every key so AutomaticEnv can find it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", constants.DefaultAPIURL)
	v.SetDefault("stream_path", "")
	v.SetDefault("transport", "sse")
	v.SetDefault("token_param", constants.DefaultTokenParam)
	v.SetDefault("token_file", constants.DefaultTokenFile)
	v.SetDefault("token_env", constants.DefaultTokenEnv)
	v.SetDefault("retry.strategy", "fixed")
	v.SetDefault("retry.delay", constants.DefaultRetryDelay)
	v.SetDefault("retry.max_delay", constants.MaxRetryDelay)
	v.SetDefault("events.policy", "auto")
	v.SetDefault("events.types", []string{})
	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")

	d := server.DefaultConfig()
	v.SetDefault("server.host", d.Host)
	v.SetDefault("server.port", d.Port)
	v.SetDefault("server.stream_path", d.StreamPath)
	v.SetDefault("server.websocket_path", d.WebSocketPath)
	v.SetDefault("server.emit_path", d.EmitPath)
	v.SetDefault("server.cors", d.CORSEnabled)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", d.TokenTTL)
	v.SetDefault("server.rate_limit", d.RateLimit)
	v.SetDefault("server.rate_burst", d.RateBurst)
	v.SetDefault("server.heartbeat", d.Heartbeat)
	v.SetDefault("server.replay_ttl", d.ReplayTTL)
	v.SetDefault("server.replay_size", d.ReplaySize)
	v.SetDefault("server.read_timeout", d.ReadTimeout)
	v.SetDefault("server.write_timeout", d.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.IdleTimeout)
	v.SetDefault("server.metrics", d.MetricsEnabled)
}

// stringList reads a list that may be given as a YAML sequence or as a
// comma separated environment variable.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags so flag values take
// precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// StreamEndpoint returns the explicit stream URL when stream_path is set,
// or "" to let the client derive it from the transport.
func (c *Config) StreamEndpoint() (string, error) {
	if c.StreamPath == "" {
		return "", nil
	}
	base, err := url.Parse(strings.TrimRight(c.APIURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", errors.NewValidationError("api_url", c.APIURL, "must be an absolute URL")
	}
	return base.JoinPath(c.StreamPath).String(), nil
}

// loadEnvFiles loads environment variables from .env files. Variables that
// are already set win; .env.local wins over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
