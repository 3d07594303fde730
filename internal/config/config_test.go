package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("VISION_API_KEY", "")
	t.Setenv("VISION_API_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("UPLOAD_DIR", "")

	cfg := FromEnv()

	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, defaultAPIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, defaultUploadDir, cfg.UploadDir)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VISION_API_KEY", "secret")
	t.Setenv("VISION_API_URL", "https://example.test/v1")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg := FromEnv()

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "https://example.test/v1", cfg.APIBaseURL)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
