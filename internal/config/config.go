package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"

	pkgcfg "github.com/Skotchmaster/nz_walks/pkg/config"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string
	SQLitePath  string

	JWTKey      []byte
	JWTIssuer   string
	JWTAudience string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	ImagesDir   string
	AuthCookies bool
	CORSOrigins []string

	ShutdownTimeout time.Duration
}

// LoadEnvFile reads key=value pairs from the given files into the process
// environment. Missing files are not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var firstErr error
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("load %s: %w", p, err)
		}
	}
	return firstErr
}

func Load() Config {
	return Config{
		ServiceName: pkgcfg.EnvDefault("SERVICE_NAME", "nzwalks"),
		ServerPort:  pkgcfg.EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    pkgcfg.EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    pkgcfg.EnvDefault("DB_DRIVER", "postgres"),
		DatabaseURL: pkgcfg.EnvDefault("DATABASE_URL", ""),
		SQLitePath:  pkgcfg.EnvDefault("SQLITE_PATH", "nzwalks.db"),

		JWTKey:      []byte(pkgcfg.EnvDefault("JWT_KEY", "")),
		JWTIssuer:   pkgcfg.EnvDefault("JWT_ISSUER", "https://localhost:7000/"),
		JWTAudience: pkgcfg.EnvDefault("JWT_AUDIENCE", "https://localhost:7000/"),

		KafkaBrokers: pkgcfg.CSV(pkgcfg.EnvDefault("KAFKA_BROKERS", "")),

		ESURL:      pkgcfg.EnvDefault("ES_URL", ""),
		ESUser:     pkgcfg.EnvDefault("ES_USER", ""),
		ESPassword: pkgcfg.EnvDefault("ES_PASSWORD", ""),
		ESIndex:    pkgcfg.EnvDefault("ES_INDEX", "walks"),

		ImagesDir:   pkgcfg.EnvDefault("IMAGES_DIR", "Images"),
		AuthCookies: pkgcfg.EnvBoolDefault("AUTH_COOKIES", false),
		CORSOrigins: pkgcfg.CSV(pkgcfg.EnvDefault("CORS_ORIGINS", "*")),

		ShutdownTimeout: pkgcfg.EnvDurationDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// MustValidate aborts start-up when settings the server cannot run without are
// missing.
func (c Config) MustValidate() {
	pkgcfg.MustNonEmptyBytes(c.JWTKey, "JWT_KEY")
	pkgcfg.MustNonEmpty(c.JWTIssuer, "JWT_ISSUER")
	pkgcfg.MustNonEmpty(c.JWTAudience, "JWT_AUDIENCE")
	c.MustValidateDB()
}

// MustValidateDB checks only the database settings; operator commands that
// never serve HTTP need nothing else.
func (c Config) MustValidateDB() {
	switch c.DBDriver {
	case "postgres":
		pkgcfg.MustNonEmpty(c.DatabaseURL, "DATABASE_URL")
	case "sqlite":
		pkgcfg.MustNonEmpty(c.SQLitePath, "SQLITE_PATH")
	default:
		panic(fmt.Sprintf("unsupported DB_DRIVER %q", c.DBDriver))
	}
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.DatabaseURL
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
