package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "SLICEMEOW"

// DefaultJWTSecret is only acceptable when app.env is "dev".
const DefaultJWTSecret = "dev-secret-change-me"

var ErrInsecureJWTSecret = errors.New("auth.jwt_secret must be set outside the dev environment")

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Store  StoreConfig  `mapstructure:"store"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Upload UploadConfig `mapstructure:"upload"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr       string   `mapstructure:"http_addr"`
	TCPAddr        string   `mapstructure:"tcp_addr"`
	GRPCAddr       string   `mapstructure:"grpc_addr"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// StoreConfig selects the document store: "sqlite" or "mongo".
type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer"`
	JWTDuration  time.Duration `mapstructure:"jwt_duration"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

// UploadConfig controls the legacy local image upload. With Enabled false
// the endpoint answers 410 and images go through managed storage instead.
type UploadConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	URLPath  string `mapstructure:"url_path"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

// Load reads .env, then the optional YAML file at path, then SLICEMEOW_*
// environment variables. Later sources win.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.tcp_addr", ":7070")
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("server.trusted_proxies", []string{"127.0.0.1"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo_database", "slicemeow")
	v.SetDefault("auth.jwt_secret", DefaultJWTSecret)
	v.SetDefault("auth.jwt_issuer", "slicemeow")
	v.SetDefault("auth.jwt_duration", "24h")
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("upload.enabled", true)
	v.SetDefault("upload.dir", "public/uploads")
	v.SetDefault("upload.url_path", "/uploads")
	v.SetDefault("upload.max_bytes", 5<<20)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the API server must not run with.
func (c Config) Validate() error {
	if c.App.Env == "dev" {
		return nil
	}
	if s := strings.TrimSpace(c.Auth.JWTSecret); s == "" || s == DefaultJWTSecret {
		return ErrInsecureJWTSecret
	}
	return nil
}
