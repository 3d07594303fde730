package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment. It is
// built once at startup and passed into constructors; request handlers
// never read the environment directly.
type Config struct {
	// APIKey authenticates against the vision inference provider. May be
	// empty at startup, in which case analysis requests fail with a 500.
	APIKey string

	// APIBaseURL is the base URL of the OpenAI-compatible inference API.
	APIBaseURL string

	// Model is the vision model identifier sent with every request.
	Model string

	// Port the HTTP server listens on.
	Port string

	// AllowedOrigins for CORS, from a comma-separated list. A single "*"
	// allows any origin.
	AllowedOrigins []string

	// UploadDir is the scratch directory for uploaded images. Created on
	// demand; files in it never outlive the request that wrote them.
	UploadDir string
}

const (
	defaultAPIBaseURL = "https://openrouter.ai/api/v1"
	defaultModel      = "meta-llama/llama-3.2-11b-vision-instruct:free"
	defaultPort       = "8080"
	defaultUploadDir  = "uploads"
)

// LoadEnvFile loads environment variables from a .env file in the working
// directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// FromEnv builds a Config from the process environment, applying defaults
// for everything except the API key.
func FromEnv() *Config {
	return &Config{
		APIKey:         os.Getenv("VISION_API_KEY"),
		APIBaseURL:     getenv("VISION_API_URL", defaultAPIBaseURL),
		Model:          getenv("VISION_MODEL", defaultModel),
		Port:           getenv("PORT", defaultPort),
		AllowedOrigins: splitOrigins(getenv("ALLOWED_ORIGINS", "*")),
		UploadDir:      getenv("UPLOAD_DIR", defaultUploadDir),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
