package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// OAuthClient holds the app credentials registered with one provider.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Config struct {
	Instagram      OAuthClient
	Facebook       OAuthClient
	Tiktok         OAuthClient
	Youtube        OAuthClient
	Linkedin       OAuthClient
	Pinterest      OAuthClient
	GoogleBusiness OAuthClient

	PostgresURI string
	RedisURI    string
	FrontendURL string
	ListenAddr  string
	R2          R2

	// SecretKey signs session and OAuth state tokens.
	SecretKey string
	// DataEncryptionKey encrypts stored provider tokens.
	DataEncryptionKey string
	CookieName        string

	StateTTL           time.Duration
	RefreshLeaseTTL    time.Duration
	PublishConcurrency int
	PlatformRateLimit  float64
}

func LoadConfig() *Config {
	return &Config{
		Instagram:      loadOAuthClient("INSTAGRAM"),
		Facebook:       loadOAuthClient("FACEBOOK"),
		Tiktok:         loadOAuthClient("TIKTOK"),
		Youtube:        loadOAuthClient("YOUTUBE"),
		Linkedin:       loadOAuthClient("LINKEDIN"),
		Pinterest:      loadOAuthClient("PINTEREST"),
		GoogleBusiness: loadOAuthClient("GOOGLE_BUSINESS"),
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		RedisURI:       getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5173"),
		ListenAddr:     getEnv("LISTEN_ADDR", ":3000"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:          getEnv("SECRET_KEY", ""),
		DataEncryptionKey:  getEnv("DATA_ENCRYPTION_KEY", ""),
		CookieName:         getEnv("COOKIE_NAME", "session"),
		StateTTL:           getEnvDuration("OAUTH_STATE_TTL", 15*time.Minute),
		RefreshLeaseTTL:    getEnvDuration("REFRESH_LEASE_TTL", 30*time.Second),
		PublishConcurrency: getEnvInt("PUBLISH_CONCURRENCY", 10),
		PlatformRateLimit:  getEnvFloat("PLATFORM_RATE_LIMIT", 5),
	}
}

func loadOAuthClient(prefix string) OAuthClient {
	return OAuthClient{
		ClientID:     getEnv(prefix+"_CLIENT_ID", ""),
		ClientSecret: getEnv(prefix+"_CLIENT_SECRET", ""),
		RedirectURI:  getEnv(prefix+"_REDIRECT_URI", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}
