package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, BackendProviderREST, cfg.Backend.Provider)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, IdentityCacheBolt, cfg.Identity.Driver)
	assert.Equal(t, 2*time.Second, cfg.Classroom.ParticipantDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Classroom.ChatReplyDelay)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.IdleTTL)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("BACKEND_PROVIDER", "Postgres")
	v.Set("BACKEND_URL", "https://project.example.co/")
	v.Set("ALLOWED_ORIGINS", "https://a.test, ,https://b.test")
	v.Set("CLASSROOM_CHAT_REPLY_DELAY", "not-a-duration")

	cfg := fromViper(v)

	assert.Equal(t, BackendProviderPostgres, cfg.Backend.Provider)
	assert.Equal(t, "https://project.example.co", cfg.Backend.URL)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 1500*time.Millisecond, cfg.Classroom.ChatReplyDelay)
}
