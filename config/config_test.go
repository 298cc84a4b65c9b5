package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Registry.StoreDriver)
	assert.Equal(t, 4096, cfg.Registry.MaxInfoBytes)
	assert.Equal(t, 16384, cfg.Registry.MaxDataBytes)
	assert.Equal(t, 1024, cfg.Registry.MaxMessageBytes)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.NeedsRedis())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("MAX_MESSAGE_BYTES", "64")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://grants.example")
	t.Setenv("EVENTS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.Registry.StoreDriver)
	assert.Equal(t, 64, cfg.Registry.MaxMessageBytes)
	assert.Equal(t, []string{"http://localhost:3000", "https://grants.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Registry.EventsEnabled)
	assert.True(t, cfg.NeedsRedis())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Host: "localhost"},
			Registry: RegistryConfig{
				StoreDriver:     StoreMemory,
				MaxInfoBytes:    1,
				MaxDataBytes:    1,
				MaxMessageBytes: 1,
			},
		}
	}

	t.Run("accepts defaults", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		cfg := valid()
		cfg.Registry.StoreDriver = "mongo"
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres needs a dsn or host", func(t *testing.T) {
		cfg := valid()
		cfg.Registry.StoreDriver = StorePostgres
		cfg.Database.Host = ""
		assert.Error(t, cfg.Validate())

		cfg.Database.DSN = "postgres://localhost/grants"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects zero text limit", func(t *testing.T) {
		cfg := valid()
		cfg.Registry.MaxDataBytes = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects empty port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad_InvalidNumbersFallBackWithWarning(t *testing.T) {
	t.Setenv("MAX_INFO_BYTES", "lots")
	t.Setenv("EVENTS_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.Registry.MaxInfoBytes)
	assert.False(t, cfg.Registry.EventsEnabled)
	assert.Contains(t, cfg.Warnings, "invalid integer for MAX_INFO_BYTES, using default: 4096")
	assert.Contains(t, cfg.Warnings, "invalid boolean for EVENTS_ENABLED, using default: false")
}

func TestServerConfig_RateLimitEnabled(t *testing.T) {
	tests := []struct {
		name  string
		rps   int
		burst int
		want  bool
	}{
		{"both set", 10, 20, true},
		{"zero rate", 0, 20, false},
		{"zero burst", 10, 0, false},
		{"both zero", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ServerConfig{RateLimitRPS: tt.rps, RateLimitBurst: tt.burst}
			assert.Equal(t, tt.want, s.RateLimitEnabled())
		})
	}
}
