package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Record store backends accepted in RECORD_STORE.
const (
	StoreAirtable = "airtable"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Port           string
	Environment    string   // ENV: production, development, etc.
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL
	TrustProxy     bool     // honour X-Forwarded-For when resolving client IPs
	LogLevel       string

	SessionSecret string
	SessionExpiry time.Duration
	RedisURI      string

	// Discord OAuth application
	ClientID        string
	ClientSecret    string
	RedirectURI     string
	OAuthBaseURL    string // token, authorize and users/@me endpoints hang off this
	CDNBaseURL      string
	OAuthTimeout    time.Duration
	ProfileCacheTTL time.Duration

	// Sinks
	WebhookURL         string
	RecordStore        string
	AirtableAPIKey     string
	AirtableBaseID     string
	AirtableBaseURL    string // empty means the client's default
	PostgresURI        string
	MongoURI           string
	DispatchTimeout    time.Duration
	DispatchMaxRetries int
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{getEnv("FRONTEND_URL", "http://localhost:5173")}
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    env,
		AllowedOrigins: allowedOrigins,
		TrustProxy:     getBool("TRUST_PROXY", false),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionExpiry: getDuration("SESSION_EXPIRY", 24*time.Hour),
		RedisURI:      getEnv("REDIS_URI", "redis://localhost:6379/0"),

		ClientID:        getEnv("CLIENT_ID", ""),
		ClientSecret:    getEnv("CLIENT_SECRET", ""),
		RedirectURI:     getEnv("REDIRECT_URI", ""),
		OAuthBaseURL:    strings.TrimRight(getEnv("OAUTH_BASE_URL", "https://discord.com/api"), "/"),
		CDNBaseURL:      strings.TrimRight(getEnv("CDN_BASE_URL", "https://cdn.discordapp.com"), "/"),
		OAuthTimeout:    getDuration("OAUTH_TIMEOUT", 10*time.Second),
		ProfileCacheTTL: getDuration("PROFILE_CACHE_TTL", 5*time.Minute),

		WebhookURL:         getEnv("WEBHOOK", ""),
		RecordStore:        strings.ToLower(getEnv("RECORD_STORE", StoreAirtable)),
		AirtableAPIKey:     getEnv("AIRTABLE_API_KEY", ""),
		AirtableBaseID:     getEnv("AIRTABLE_BASE_ID", ""),
		AirtableBaseURL:    getEnv("AIRTABLE_BASE_URL", ""),
		PostgresURI:        getEnv("POSTGRES_URI", "postgres://localhost:5432/flags?sslmode=disable"),
		MongoURI:           getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/flags")),
		DispatchTimeout:    getDuration("DISPATCH_TIMEOUT", 15*time.Second),
		DispatchMaxRetries: getInt("DISPATCH_MAX_RETRIES", 2),
	}
}

// Validate reports every required setting that is missing.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"SESSION_SECRET": c.SessionSecret,
		"CLIENT_ID":      c.ClientID,
		"CLIENT_SECRET":  c.ClientSecret,
		"REDIRECT_URI":   c.RedirectURI,
		"WEBHOOK":        c.WebhookURL,
	}
	for _, key := range []string{"SESSION_SECRET", "CLIENT_ID", "CLIENT_SECRET", "REDIRECT_URI", "WEBHOOK"} {
		if required[key] == "" {
			errs = append(errs, errors.New(key+" is required"))
		}
	}

	switch c.RecordStore {
	case StoreAirtable:
		if c.AirtableAPIKey == "" || c.AirtableBaseID == "" {
			errs = append(errs, errors.New("AIRTABLE_API_KEY and AIRTABLE_BASE_ID are required when RECORD_STORE=airtable"))
		}
	case StorePostgres, StoreMongo:
	default:
		errs = append(errs, errors.New("RECORD_STORE must be one of airtable, postgres, mongo"))
	}

	if len(c.SessionSecret) > 0 && len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 characters"))
	}
	if c.SessionExpiry <= 0 {
		errs = append(errs, errors.New("SESSION_EXPIRY must be positive"))
	}
	if c.DispatchMaxRetries < 0 {
		errs = append(errs, errors.New("DISPATCH_MAX_RETRIES must not be negative"))
	}
	return errors.Join(errs...)
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("90m") and bare integers, read as seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return b
}
