package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	// DefaultJWTSecret ships in the sample config and is refused in prod.
	DefaultJWTSecret = "change-me-in-production-please-0123456789"

	minSecretLen = 32
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env               string            `yaml:"env" env:"ENV" env-default:"local"`
	DSN               string            `yaml:"dsn" env:"DATABASE_URL" env-required:"true"`
	MigrationsEnabled bool              `yaml:"migrations_enabled" env:"MIGRATIONS_ENABLED"`
	HTTP              HTTPConfig        `yaml:"http"`
	JWT               JWTConfig         `yaml:"jwt"`
	Admin             AdminConfig       `yaml:"admin"`
	Redis             RedisConf         `yaml:"redis"`
	Cache             CacheConfig       `yaml:"cache"`
	FileStorage       FileStorageConfig `yaml:"file_storage"`
	Session           SessionConfig     `yaml:"session"`
	Login             LoginConfig       `yaml:"login"`
}

type HTTPConfig struct {
	Host           string        `yaml:"host" env:"HTTP_HOST"`
	Port           string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	Timeout        time.Duration `yaml:"timeout" env-default:"10s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-default:"http://localhost:3000,http://127.0.0.1:3000"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET" env-default:"change-me-in-production-please-0123456789"`
	TTL    time.Duration `yaml:"ttl" env:"JWT_TTL" env-default:"168h"`
}

// AdminConfig is the bootstrap account created when no admin exists.
type AdminConfig struct {
	Username string `yaml:"username" env:"ADMIN_USERNAME" env-default:"admin"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD" env-default:"admin123"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
}

type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" env:"CACHE_ENABLED"`
	CategoriesTTL time.Duration `yaml:"categories_ttl" env-default:"1h"`
	TagsTTL       time.Duration `yaml:"tags_ttl" env-default:"30m"`
	HotTTL        time.Duration `yaml:"hot_ttl" env-default:"10m"`
}

type FileStorageConfig struct {
	BaseDir string `yaml:"base_dir" env:"UPLOAD_DIR" env-default:"./uploads"`
	BaseURL string `yaml:"base_url" env:"UPLOAD_URL" env-default:"/uploads"`
	MaxSize int64  `yaml:"max_size" env-default:"10485760"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret" env:"SESSION_SECRET"`
	MaxAge time.Duration `yaml:"max_age" env-default:"168h"`
}

type LoginConfig struct {
	RatePerMinute int `yaml:"rate_per_minute" env-default:"10"`
	Burst         int `yaml:"burst" env-default:"5"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}

	return &cfg
}

// Validate rejects weak signing secrets. The sample secret is tolerated
// outside prod.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("%w: unknown env %q", ErrInvalidConfig, c.Env)
	}

	if len(c.JWT.Secret) < minSecretLen {
		return fmt.Errorf("%w: jwt secret must be at least %d characters", ErrInvalidConfig, minSecretLen)
	}

	if c.Env == EnvProd && c.JWT.Secret == DefaultJWTSecret {
		return fmt.Errorf("%w: default jwt secret is not allowed in prod", ErrInvalidConfig)
	}

	if c.JWT.TTL <= 0 {
		return fmt.Errorf("%w: jwt ttl must be positive", ErrInvalidConfig)
	}

	if c.FileStorage.MaxSize <= 0 {
		return fmt.Errorf("%w: file_storage.max_size must be positive", ErrInvalidConfig)
	}

	return nil
}

// SessionKey falls back to the jwt secret when no session secret is set.
func (c *Config) SessionKey() []byte {
	if c.Session.Secret != "" {
		return []byte(c.Session.Secret)
	}
	return []byte(c.JWT.Secret)
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
