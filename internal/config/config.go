// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища сессий.
const (
	SessionDriverRedis  = "redis"
	SessionDriverMemory = "memory"
)

// Config: корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
//
// Config собирается один раз в main и передаётся по значению в кодек токенов,
// хэшер и сервис; бизнес-логика не читает окружение сама.
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	GRPC     GRPCConfig    `yaml:"grpc"`
	Auth     AuthConfig    `yaml:"auth"`
	Cookie   CookieConfig  `yaml:"cookie"`
	DB       DBConfig      `yaml:"db"`
	Session  SessionConfig `yaml:"session"`
	Redis    RedisConfig   `yaml:"redis"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig: таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig: сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api"`
}

// GRPCConfig описывает сетевые настройки gRPC-сервера.
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

// Addr возвращает адрес в формате host:port.
func (g HTTPConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"tasker"`
	Audience        []string      `yaml:"audience" env:"AUDIENCE" env-default:"tasker-api"`
	Leeway          time.Duration `yaml:"leeway" env:"TOKEN_LEEWAY" env-default:"0s"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`
}

// CookieConfig: параметры cookie, в которой ходит refresh-токен.
type CookieConfig struct {
	Name     string `yaml:"name" env:"COOKIE_NAME" env-default:"refresh_token"`
	Path     string `yaml:"path" env:"COOKIE_PATH" env-default:"/"`
	Domain   string `yaml:"domain" env:"COOKIE_DOMAIN"`
	// Insecure снимает флаг Secure (локально без TLS); по умолчанию cookie Secure.
	Insecure bool   `yaml:"insecure" env:"COOKIE_INSECURE"`
	SameSite string `yaml:"same_site" env:"COOKIE_SAME_SITE" env-default:"strict"`
}

// Secure сообщает, ставить ли флаг Secure на cookie.
func (c CookieConfig) Secure() bool { return !c.Insecure }

// SameSiteMode переводит строковое значение в http.SameSite.
// Неизвестные значения трактуются как strict.
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

// DBConfig: настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
	// MaxConns/MinConns переопределяют размер пула pgx; 0: значение из DSN или дефолт pgx.
	MaxConns        int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"0"`
	MinConns        int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"0"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" env-default:"0s"`
}

// SessionConfig: выбор хранилища сессий (refresh-токенов).
type SessionConfig struct {
	Driver string `yaml:"driver" env:"SESSION_DRIVER" env-default:"redis"`
	Prefix string `yaml:"prefix" env:"SESSION_PREFIX" env-default:"tasker:session:"`
}

// RedisConfig: подключение к Redis.
type RedisConfig struct {
	RedisURL   string `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	PoolSize   int    `yaml:"pool_size" env:"REDIS_POOL_SIZE" env-default:"10"`
	MaxRetries int    `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
}

// Validate проверяет значения, которые cleanenv не умеет проверить сам.
func (c *Config) Validate() error {
	const op = "config.Validate"

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%s: token ttl must be positive", op)
	}

	if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		return fmt.Errorf("%s: access_token_ttl must be shorter than refresh_token_ttl", op)
	}

	switch c.Session.Driver {
	case SessionDriverRedis, SessionDriverMemory:
	default:
		return fmt.Errorf("%s: unknown session driver %q", op, c.Session.Driver)
	}

	return nil
}

// MustLoad: обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file does not exist: %s", p)
			}

			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	var (
		out *Config
		err error
	)

	switch {
	// 1) Явный путь.
	case path != "":
		out, err = tryRead(path)
	// 2) CONFIG_PATH.
	case os.Getenv("CONFIG_PATH") != "":
		out, err = tryRead(os.Getenv("CONFIG_PATH"))
	// 3) ./local.yaml.
	case fileExists("local.yaml"):
		out, err = tryRead("local.yaml")
	// 4) Только ENV.
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
		out = &cfg
	}

	if err != nil {
		return nil, err
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}

	return out, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
