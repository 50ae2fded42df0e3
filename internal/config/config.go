package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DBDriver         string // postgres / sqlite
	DatabaseURL      string // あれば最優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string
	SQLitePath       string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret string // JWT署名シークレット
	JWTTTL    time.Duration

	LogLevel    string
	LogEncoding string // json / console

	LockBackend   string // memory / redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	TxMaxRetries int

	CORSOrigins []string

	SeedAdminUsername string
	SeedAdminPassword string
}

// 本番かどうか
func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// Loadは環境変数から設定を読む
func Load() (Config, error) {
	pgPort, err := atoiOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxOpen, err := atoiOr("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := atoiOr("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, err
	}
	lifetimeSec, err := atoiOr("DB_CONN_MAX_LIFETIME_SEC", 300)
	if err != nil {
		return Config{}, err
	}
	jwtTTLMin, err := atoiOr("JWT_TTL_MIN", 60)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := atoiOr("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	lockTTLSec, err := atoiOr("LOCK_TTL_SEC", 10)
	if err != nil {
		return Config{}, err
	}
	retries, err := atoiOr("TX_MAX_RETRIES", 3)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		DBDriver:         getenv("DB_DRIVER", "postgres"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "lensstock"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getenv("SQLITE_PATH", "lensstock.db"),

		DBMaxOpenConns:    maxOpen,
		DBMaxIdleConns:    maxIdle,
		DBConnMaxLifetime: time.Duration(lifetimeSec) * time.Second,

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    time.Duration(jwtTTLMin) * time.Minute,

		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogEncoding: os.Getenv("LOG_ENCODING"),

		LockBackend:   getenv("LOCK_BACKEND", "memory"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		LockTTL:       time.Duration(lockTTLSec) * time.Second,

		TxMaxRetries: retries,

		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),

		SeedAdminUsername: os.Getenv("SEED_ADMIN_USERNAME"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}

	//必須チェック
	switch cfg.GoEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("GO_ENV must be dev or prod")
	}
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be postgres or sqlite")
	}
	switch cfg.LockBackend {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("LOCK_BACKEND must be memory or redis")
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProd() {
			return Config{}, fmt.Errorf("JWT_SECRET is required")
		}
		cfg.JWTSecret = "dev_secret_change_me"
	}
	if cfg.TxMaxRetries < 0 {
		return Config{}, fmt.Errorf("TX_MAX_RETRIES must be >= 0")
	}
	if (cfg.SeedAdminUsername == "") != (cfg.SeedAdminPassword == "") {
		return Config{}, fmt.Errorf("SEED_ADMIN_USERNAME and SEED_ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

// ":8080"形式のアドレス
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	out := make([]string, 0)
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
