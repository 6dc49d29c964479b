// Package config resolves server settings from .env files, PDEX_*
// environment variables and the -host/-port flags, in increasing priority.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"paralleldex/internal/auth"
	"paralleldex/internal/media"
	"paralleldex/internal/store"
)

const (
	KVStore  = "store"
	KVRedis  = "redis"
	KVMemory = "memory"

	defaultPort = 8080
)

type Config struct {
	Addr string

	StoreEngine string
	DataFile    string
	PostgresDSN string

	KVEngine string
	RedisURL string

	JWTSecret string
	// EphemeralSecret is set when no secret was configured and one was
	// generated; tokens do not survive a restart.
	EphemeralSecret bool
	TokenTTL        time.Duration

	ScanDuration time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	Debug bool
	COS   media.Config

	LogLevel  string
	LogFormat string
}

// Load reads envFiles (missing ones are skipped) underneath the process
// environment and parses args as command-line flags.
func Load(args []string, envFiles ...string) (Config, error) {
	fileValues := make(map[string]string)
	for _, path := range envFiles {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
		for k, v := range values {
			if _, seen := fileValues[k]; !seen {
				fileValues[k] = v
			}
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileValues[key]
	}
	return Parse(lookup, args)
}

// Parse builds a Config from a variable lookup and flags.
func Parse(lookup func(string) string, args []string) (Config, error) {
	env := envReader(lookup)

	cfg := Config{
		StoreEngine:    strings.ToLower(env.str("PDEX_STORE", store.EngineSQLite)),
		PostgresDSN:    env.str("PDEX_POSTGRES_DSN", ""),
		KVEngine:       strings.ToLower(env.str("PDEX_KV", KVStore)),
		RedisURL:       env.str("PDEX_REDIS_URL", ""),
		JWTSecret:      env.str("PDEX_JWT_SECRET", ""),
		TokenTTL:       time.Duration(env.int("PDEX_TOKEN_TTL_HOURS", 24*30)) * time.Hour,
		ScanDuration:   time.Duration(env.int("PDEX_SCAN_MILLIS", 1500)) * time.Millisecond,
		RateLimitRPS:   env.float("PDEX_RATE_LIMIT_RPS", 10),
		RateLimitBurst: env.int("PDEX_RATE_LIMIT_BURST", 20),
		CORSOrigins:    splitList(env.str("PDEX_CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		Debug:          env.bool("PDEX_DEBUG", false),
		LogLevel:       env.str("LOG_LEVEL", "info"),
		LogFormat:      strings.ToLower(env.str("LOG_FORMAT", "text")),
		COS: media.Config{
			SecretID:     env.str("PDEX_COS_SECRET_ID", ""),
			SecretKey:    env.str("PDEX_COS_SECRET_KEY", ""),
			Region:       env.str("PDEX_COS_REGION", "ap-hongkong"),
			Bucket:       env.str("PDEX_COS_BUCKET_NAME", ""),
			PublicDomain: env.str("PDEX_COS_PUBLIC_DOMAIN", ""),
		},
	}
	cfg.DataFile = env.str("PDEX_DATA_FILE", defaultDataFile(cfg.StoreEngine))

	addr, err := resolveListenAddr(env, args)
	if err != nil {
		return Config{}, err
	}
	cfg.Addr = addr

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = randomSecret()
		cfg.EphemeralSecret = true
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreEngine {
	case store.EngineSQLite, store.EngineJSON:
	case store.EnginePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("PDEX_POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unsupported store engine: %s", c.StoreEngine)
	}
	switch c.KVEngine {
	case KVStore, KVMemory:
	case KVRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("PDEX_REDIS_URL is required for the redis kv")
		}
	default:
		return fmt.Errorf("unsupported kv engine: %s", c.KVEngine)
	}
	if len(c.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("PDEX_JWT_SECRET: %w", auth.ErrWeakSecret)
	}
	if c.ScanDuration <= 0 {
		return errors.New("PDEX_SCAN_MILLIS must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("rate limit must be positive")
	}
	return nil
}

func resolveListenAddr(env envReader, args []string) (string, error) {
	defaultHost, port := parseListenAddr(env.str("PDEX_ADDR", ":8080"))
	if port <= 0 {
		port = defaultPort
	}
	defaultHost = strings.TrimSpace(env.str("PDEX_HOST", defaultHost))
	port = env.int("PDEX_PORT", port)

	fs := flag.NewFlagSet("paralleldex", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	host := fs.String("host", defaultHost, "server listen host, e.g. 0.0.0.0")
	portFlag := fs.Int("port", port, "server listen port, e.g. 8080")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return joinListenAddr(strings.TrimSpace(*host), *portFlag), nil
}

func parseListenAddr(addr string) (string, int) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", 0
	}
	if strings.HasPrefix(addr, ":") {
		return "", parseIntValue(strings.TrimPrefix(addr, ":"), 0)
	}
	if host, port, err := net.SplitHostPort(addr); err == nil {
		return host, parseIntValue(port, 0)
	}
	if portOnly := parseIntValue(addr, 0); portOnly > 0 {
		return "", portOnly
	}
	return addr, 0
}

func joinListenAddr(host string, port int) string {
	if port <= 0 {
		port = defaultPort
	}
	if host == "" {
		return fmt.Sprintf(":%d", port)
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func defaultDataFile(storeEngine string) string {
	switch storeEngine {
	case store.EngineJSON:
		return "data/paralleldex.json"
	default:
		return "data/paralleldex.db"
	}
}

type envReader func(string) string

func (e envReader) str(key, fallback string) string {
	value := strings.TrimSpace(e(key))
	if value == "" {
		return fallback
	}
	return value
}

func (e envReader) int(key string, fallback int) int {
	raw := strings.TrimSpace(e(key))
	if raw == "" {
		return fallback
	}
	return parseIntValue(raw, fallback)
}

func (e envReader) float(key string, fallback float64) float64 {
	raw := strings.TrimSpace(e(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func (e envReader) bool(key string, fallback bool) bool {
	raw := strings.TrimSpace(e(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseIntValue(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("generate jwt secret: %v", err))
	}
	return hex.EncodeToString(buf)
}
