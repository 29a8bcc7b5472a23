package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Env string

const (
	EnvDev  Env = "dev"
	EnvProd Env = "prod"
)

type Config struct {
	Env      Env
	HTTPAddr string

	// PublicURL is the externally reachable base URL of this tool, e.g.
	// "https://tool.courseloop.io". The launch/login/keys endpoints advertised
	// during dynamic registration are derived from it.
	PublicURL string

	DBDriver string // sqlite|postgres
	DBDSN    string

	// RedisURL selects the Redis-backed pending-registration store when set;
	// empty falls back to the in-process store (single-node dev).
	RedisURL   string
	PendingTTL time.Duration

	// Tool identity presented to platforms during registration.
	ToolName        string
	ToolDescription string
	ToolLogoURL     string

	// KeyEncSecret encrypts private signing keys at rest (32 bytes,
	// hex-encoded). Required when the SQL key store is used.
	KeyEncSecret string

	CORSOrigins []string
}

func FromEnv() Config {
	_ = godotenv.Load()

	pub := strings.TrimSuffix(envOr("PUBLIC_URL", "http://localhost:8080"), "/")

	return Config{
		Env:      Env(envOr("TOOL_ENV", "dev")),
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		PublicURL: pub,

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		RedisURL:   os.Getenv("REDIS_URL"),
		PendingTTL: envDur("PENDING_REG_TTL_SEC", 3600),

		ToolName:        envOr("TOOL_NAME", "Courseloop LTI Tool"),
		ToolDescription: envOr("TOOL_DESCRIPTION", "Courseloop assessment and gradebook tool"),
		ToolLogoURL:     envOr("TOOL_LOGO_URL", "https://static.courseloop.io/logo.png"),

		KeyEncSecret: os.Getenv("KEY_ENC_SECRET"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envDur(k string, defSec int) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defSec) * time.Second
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
