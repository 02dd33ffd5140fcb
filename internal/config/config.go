// internal/config/config.go
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort        string `mapstructure:"API_PORT"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	GinMode        string `mapstructure:"GIN_MODE"`
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	TLSEnable   bool   `mapstructure:"TLS_ENABLE"`
	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`

	// Comma-separated list of Origin values allowed to open the SSH websocket.
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	// Bearer token validation for tokens issued by the external auth service.
	AuthEnabled bool   `mapstructure:"AUTH_ENABLED"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`

	SSHConnectTimeout time.Duration `mapstructure:"SSH_CONNECT_TIMEOUT"`
	SSHKnownHosts     string        `mapstructure:"SSH_KNOWN_HOSTS"`

	VPNBinary     string        `mapstructure:"VPN_BINARY"`
	VPNExtraArgs  string        `mapstructure:"VPN_EXTRA_ARGS"`
	VPNWorkDir    string        `mapstructure:"VPN_WORK_DIR"`
	VPNStopGrace  time.Duration `mapstructure:"VPN_STOP_GRACE"`
	VPNIPCheckURL string        `mapstructure:"VPN_IP_CHECK_URL"`

	PingBinary            string `mapstructure:"PING_BINARY"`
	ProbeDefaultTimeoutMs int    `mapstructure:"PROBE_DEFAULT_TIMEOUT_MS"`
	ProbeMaxTimeoutMs     int    `mapstructure:"PROBE_MAX_TIMEOUT_MS"`
}

var AppConfig Config

const DefaultJWTSecret = "default_secret_change_me"

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_PORT", "3001")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("TLS_ENABLE", false)
	v.SetDefault("TLS_CERT_FILE", "")
	v.SetDefault("TLS_KEY_FILE", "")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000")
	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("SSH_CONNECT_TIMEOUT", "30s")
	v.SetDefault("SSH_KNOWN_HOSTS", "")
	v.SetDefault("VPN_BINARY", "openvpn")
	v.SetDefault("VPN_EXTRA_ARGS", "")
	v.SetDefault("VPN_WORK_DIR", os.TempDir())
	v.SetDefault("VPN_STOP_GRACE", "3s")
	v.SetDefault("VPN_IP_CHECK_URL", "https://api.ipify.org")
	v.SetDefault("PING_BINARY", "ping")
	v.SetDefault("PROBE_DEFAULT_TIMEOUT_MS", 5000)
	v.SetDefault("PROBE_MAX_TIMEOUT_MS", 60000)
}

// LoadConfig reads .env (if present) and the environment into AppConfig.
func LoadConfig() error {
	cfg, err := Load(".env")
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load builds a Config from the given env file path and the process
// environment. A missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Ignore if .env file not found, rely on defaults/env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Origins returns the parsed ALLOWED_ORIGINS list.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
