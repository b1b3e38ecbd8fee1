package config

import (
	"os"
	"strings"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type PlatformCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Configured reports whether real credentials are present. Empty values and
// the "your-***" placeholders from the sample env file both count as missing.
func (p PlatformCredentials) Configured() bool {
	return isConfigured(p.ClientID) && isConfigured(p.ClientSecret)
}

type AIService struct {
	BaseURL string
	APIKey  string
}

type Config struct {
	Twitter   PlatformCredentials
	Instagram PlatformCredentials
	YouTube   PlatformCredentials
	LinkedIn  PlatformCredentials
	Facebook  PlatformCredentials

	// Tokens for the public read path (competitor collection).
	TwitterBearerToken string
	YouTubeAPIKey      string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	PostgresURI  string
	DatabaseName string
	RedisURI     string
	FrontendURL  string
	UploadDir    string

	AI AIService
	R2 R2

	SecretKey  string
	CookieName string
}

func LoadConfig() *Config {
	return &Config{
		Twitter: PlatformCredentials{
			ClientID:     getEnv("TWITTER_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TWITTER_REDIRECT_URI", ""),
		},
		Instagram: PlatformCredentials{
			ClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
		},
		YouTube: PlatformCredentials{
			ClientID:     getEnv("YOUTUBE_CLIENT_ID", ""),
			ClientSecret: getEnv("YOUTUBE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("YOUTUBE_REDIRECT_URI", ""),
		},
		LinkedIn: PlatformCredentials{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		},
		Facebook: PlatformCredentials{
			ClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
			ClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("FACEBOOK_REDIRECT_URI", ""),
		},
		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		YouTubeAPIKey:      getEnv("YOUTUBE_API_KEY", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		DatabaseName:       getEnv("DATABASE_NAME", ""),
		RedisURI:           getEnv("REDIS_URI", ""),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		AI: AIService{
			BaseURL: getEnv("AI_SERVICE_URL", ""),
			APIKey:  getEnv("AI_SERVICE_API_KEY", ""),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "socialflow_auth"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func isConfigured(v string) bool {
	return v != "" && !strings.HasPrefix(v, "your-")
}
