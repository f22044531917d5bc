package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("MAXICOACH_AUTH_JWTSECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, "Pass1234", cfg.Auth.ResetPassword)
	assert.Equal(t, 1500, cfg.Chat.ThinkingDelayMs)
	assert.Equal(t, "gemini-2.5-flash-preview-tts", cfg.Speech.Model)
	assert.Equal(t, "Zephyr", cfg.Speech.DefaultVoice)
	assert.Equal(t, 24000, cfg.Speech.SampleRate)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAXICOACH_AUTH_JWTSECRET", "s")
	t.Setenv("MAXICOACH_SERVER_PORT", "9090")
	t.Setenv("MAXICOACH_CHAT_THINKINGDELAYMS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0, cfg.Chat.ThinkingDelayMs)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("MAXICOACH_AUTH_JWTSECRET", "")

	_, err := Load()
	assert.Error(t, err)

	cfg, err := LoadForTools()
	require.NoError(t, err)
	assert.Equal(t, "./data/maxicoach.db", cfg.SQLite.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "memory store",
			cfg:  Config{Session: SessionConfig{Store: "memory"}, Auth: AuthConfig{JWTSecret: "x"}},
		},
		{
			name:    "redis store without redis",
			cfg:     Config{Session: SessionConfig{Store: "redis"}, Auth: AuthConfig{JWTSecret: "x"}},
			wantErr: true,
		},
		{
			name: "redis store with redis",
			cfg: Config{
				Session: SessionConfig{Store: "redis"},
				Redis:   RedisConfig{Enabled: true},
				Auth:    AuthConfig{JWTSecret: "x"},
			},
		},
		{
			name:    "unknown store",
			cfg:     Config{Session: SessionConfig{Store: "disk"}, Auth: AuthConfig{JWTSecret: "x"}},
			wantErr: true,
		},
		{
			name: "speech without key",
			cfg: Config{
				Session: SessionConfig{Store: "memory"},
				Auth:    AuthConfig{JWTSecret: "x"},
				Speech:  SpeechConfig{Enabled: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
